package ports

import "context"

// Notifier delivers a price alert to the user. Sends are synchronous and
// blocking; delivery guarantees are whatever the transport provides.
type Notifier interface {
	// Send composes and delivers one alert message embedding the chart image.
	Send(ctx context.Context, productTitle, imagePath string) error
}
