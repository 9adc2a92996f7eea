package ports

import (
	"github.com/bjoelf/price-alert/internal/domain"
)

// ChartRenderer turns a product's price history into a rendered image file.
type ChartRenderer interface {
	// Render draws a line chart of the full history and returns the path of
	// the written image. It always re-renders; nothing is cached.
	Render(productID, title string, history []domain.Observation) (string, error)
}
