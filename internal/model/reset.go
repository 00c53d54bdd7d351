package model

import "time"

// ResetCode represents a one-time password-reset code in the database.
// Codes are 6-digit integers in [100000, 999999]. A user may have several
// codes on file; only the most recently created one is ever checked.
type ResetCode struct {
	ID         int64
	Username   string
	Code       int
	CreatedAt  time.Time
	ConsumedAt *time.Time
}

// Consumed reports whether the code has already been used to change a password.
func (c *ResetCode) Consumed() bool {
	return c.ConsumedAt != nil
}

// ResetRequestResponse confirms that a reset code was generated and handed
// to the delivery channel. Delivery itself is asynchronous, so the response
// never claims the SMS arrived.
type ResetRequestResponse struct {
	Message string `json:"message"`
}

// ConfirmResetRequest represents a password-change request authorized by a
// previously delivered reset code. The code arrives as a string and is
// parsed strictly: "012345" never matches a stored 12345.
type ConfirmResetRequest struct {
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}
