package services

// Publisher is the realtime fan-out surface the services push into. All
// methods are best-effort and non-blocking; identities with no live
// connection are silently skipped. Implemented by *websocket.Hub.
type Publisher interface {
	PublishToIdentity(id uint, event string, payload interface{})
	PublishToRole(role string, event string, payload interface{})
	PublishToGroup(group string, event string, payload interface{})
	PublishToGroupExcept(group string, event string, payload interface{}, exclude uint)
	PublishToAll(event string, payload interface{})
}
