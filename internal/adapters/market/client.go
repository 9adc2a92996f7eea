// Package market implements the marketplace product lookup against the
// Product Advertising style GetItems endpoint. Requests are signed with AWS
// Signature V4; the partner tag rides in the request payload.
package market

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/shopspring/decimal"

	"github.com/bjoelf/price-alert/internal/domain"
)

const (
	serviceName  = "ProductAdvertisingAPI"
	getItemsPath = "/paapi5/getitems"
	amzTarget    = "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.GetItems"
)

// Config carries the marketplace credentials and endpoint. Loaded once at
// startup; never mutated afterwards.
type Config struct {
	Endpoint    string // e.g. https://webservices.amazon.com
	Region      string // signing region, e.g. us-east-1
	AccessKey   string
	SecretKey   string
	PartnerTag  string
	Marketplace string // e.g. www.amazon.com
}

// Client issues synchronous item lookups. No retry and no caching: a lookup
// failure propagates to the caller and aborts the scan.
type Client struct {
	cfg        Config
	httpClient *http.Client
	signer     *v4.Signer
	now        func() time.Time
}

// NewClient creates a lookup client from the given configuration.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		signer:     v4.NewSigner(),
		now:        time.Now,
	}
}

type getItemsRequest struct {
	ItemIds     []string `json:"ItemIds"`
	PartnerTag  string   `json:"PartnerTag"`
	PartnerType string   `json:"PartnerType"`
	Marketplace string   `json:"Marketplace"`
	Resources   []string `json:"Resources"`
}

type getItemsResponse struct {
	ItemsResult struct {
		Items []struct {
			ASIN     string `json:"ASIN"`
			ItemInfo struct {
				Title struct {
					DisplayValue string `json:"DisplayValue"`
				} `json:"Title"`
			} `json:"ItemInfo"`
			Offers struct {
				Listings []struct {
					Price struct {
						Amount   decimal.Decimal `json:"Amount"`
						Currency string          `json:"Currency"`
					} `json:"Price"`
				} `json:"Listings"`
			} `json:"Offers"`
		} `json:"Items"`
	} `json:"ItemsResult"`
	Errors []struct {
		Code    string `json:"Code"`
		Message string `json:"Message"`
	} `json:"Errors"`
}

// Lookup fetches the display title and current price for one product.
func (c *Client) Lookup(ctx context.Context, productID string) (domain.Quote, error) {
	payload, err := json.Marshal(getItemsRequest{
		ItemIds:     []string{productID},
		PartnerTag:  c.cfg.PartnerTag,
		PartnerType: "Associates",
		Marketplace: c.cfg.Marketplace,
		Resources:   []string{"ItemInfo.Title", "Offers.Listings.Price"},
	})
	if err != nil {
		return domain.Quote{}, fmt.Errorf("failed to encode lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+getItemsPath, bytes.NewReader(payload))
	if err != nil {
		return domain.Quote{}, fmt.Errorf("failed to build lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Content-Encoding", "amz-1.0")
	req.Header.Set("X-Amz-Target", amzTarget)

	hash := sha256.Sum256(payload)
	creds := aws.Credentials{AccessKeyID: c.cfg.AccessKey, SecretAccessKey: c.cfg.SecretKey}
	if err := c.signer.SignHTTP(ctx, creds, req, hex.EncodeToString(hash[:]), serviceName, c.cfg.Region, c.now()); err != nil {
		return domain.Quote{}, fmt.Errorf("failed to sign lookup request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("lookup request for %s failed: %w", productID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("failed to read lookup response for %s: %w", productID, err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Quote{}, fmt.Errorf("lookup for %s returned status %d: %s", productID, resp.StatusCode, body)
	}

	var parsed getItemsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.Quote{}, fmt.Errorf("failed to decode lookup response for %s: %w", productID, err)
	}
	if len(parsed.Errors) > 0 {
		return domain.Quote{}, fmt.Errorf("lookup for %s failed: %s: %s", productID, parsed.Errors[0].Code, parsed.Errors[0].Message)
	}
	if len(parsed.ItemsResult.Items) == 0 {
		return domain.Quote{}, fmt.Errorf("lookup for %s returned no items", productID)
	}

	item := parsed.ItemsResult.Items[0]
	if len(item.Offers.Listings) == 0 {
		return domain.Quote{}, fmt.Errorf("lookup for %s returned no price listing", productID)
	}

	return domain.Quote{
		Title:    item.ItemInfo.Title.DisplayValue,
		Price:    item.Offers.Listings[0].Price.Amount,
		Currency: item.Offers.Listings[0].Price.Currency,
	}, nil
}
