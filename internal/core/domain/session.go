package domain

import "fmt"

// Session is the result of a successful login.
type Session struct {
	UserID       string
	AccessToken  string
	RefreshToken string
}

// DeliveryMode selects how the refresh token travels between server and client.
type DeliveryMode string

const (
	// DeliveryCookie sends the refresh token as an HttpOnly, SameSite=Strict cookie
	// and reads it back from that cookie only.
	DeliveryCookie DeliveryMode = "cookie"
	// DeliveryBody returns the refresh token in the JSON body and reads it from the
	// request body only.
	DeliveryBody DeliveryMode = "body"
)

// ParseDeliveryMode validates a configured delivery mode.
func ParseDeliveryMode(s string) (DeliveryMode, error) {
	switch m := DeliveryMode(s); m {
	case DeliveryCookie, DeliveryBody:
		return m, nil
	default:
		return "", fmt.Errorf("unknown refresh token delivery %q", s)
	}
}
