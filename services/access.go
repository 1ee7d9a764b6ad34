package services

import (
	"errors"

	"gorm.io/gorm"

	"event-marketplace-server/models"
)

// ResolveParty decides which side of a conversation the caller is on. A
// caller owns the user side iff conversation.user_id matches; it owns the
// vendor side iff the vendor record it owns is the conversation's vendor.
// Everyone else gets ErrUnauthorized. Every message read, send and
// read-marking operation runs through here first.
func ResolveParty(db *gorm.DB, conv *models.Conversation, callerID uint) (models.Party, error) {
	if conv.UserID == callerID {
		return models.PartyUser, nil
	}

	var vendor models.Vendor
	err := db.Where("id = ? AND user_id = ?", conv.VendorID, callerID).First(&vendor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUnauthorized
		}
		return "", err
	}
	return models.PartyVendor, nil
}
