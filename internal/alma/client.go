// Package alma implements the catalog service collaborator: item lookup
// by barcode, user lookup by email or primary id, and ISBN holdings
// search through the LSM gateway.
package alma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/scriptotek/rt-triage/internal/config"
	apperrors "github.com/scriptotek/rt-triage/pkg/util"
)

// CodeDesc is Alma's ubiquitous code/description pair.
type CodeDesc struct {
	Value string `json:"value"`
	Desc  string `json:"desc"`
}

// Item is the subset of an Alma item record the agent reads.
type Item struct {
	Barcode  string
	Library  CodeDesc
	Location CodeDesc
}

// User is the subset of an Alma user record the agent reads.
type User struct {
	PrimaryID         string
	UserGroup         CodeDesc
	PreferredLanguage string
	RSLibraryCode     string
	RSLibraryName     string
}

// Holding summarizes one physical holding for an ISBN search hit.
type Holding struct {
	Library          string `json:"library"`
	LibraryName      string `json:"library_name"`
	Location         string `json:"location"`
	Callcode         string `json:"callcode"`
	TotalItems       int    `json:"total_items,string"`
	UnavailableItems int    `json:"unavailable_items,string"`
	Items            []struct {
		Barcode    string   `json:"barcode"`
		BaseStatus CodeDesc `json:"base_status"`
	} `json:"items"`
}

// Portfolio summarizes one electronic portfolio for an ISBN search hit.
type Portfolio struct {
	Activation     string `json:"activation"`
	CollectionName string `json:"collection_name"`
}

// Bib is one bibliographic record returned by the LSM holdings search.
type Bib struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Holdings   []Holding   `json:"holdings"`
	Portfolios []Portfolio `json:"portfolios"`
}

// ItemSource resolves item barcodes. Satisfied by Client and by the
// Redis-backed CachedItems decorator.
type ItemSource interface {
	Item(ctx context.Context, barcode string) (*Item, error)
}

// Client is an authenticated Alma API session.
type Client struct {
	baseURL    string
	lsmBaseURL string
	apiKey     string
	client     *http.Client
	logger     *zap.Logger
}

// NewClient constructs the catalog client.
func NewClient(cfg config.AlmaConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.NewConfigError("ALMA_KEY must be set")
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		lsmBaseURL: strings.TrimRight(cfg.LSMBaseURL, "/"),
		apiKey:     cfg.APIKey,
		client:     &http.Client{Timeout: cfg.Timeout()},
		logger:     logger,
	}, nil
}

// Item looks up an item by barcode. An unknown barcode is an expected
// outcome and returns (nil, nil).
func (c *Client) Item(ctx context.Context, barcode string) (*Item, error) {
	var payload struct {
		ItemData *struct {
			Barcode  string   `json:"barcode"`
			Library  CodeDesc `json:"library"`
			Location CodeDesc `json:"location"`
		} `json:"item_data"`
	}
	err := c.getJSON(ctx, c.baseURL+"/items?"+url.Values{"item_barcode": {barcode}}.Encode(), &payload)
	if err != nil {
		return nil, err
	}
	if payload.ItemData == nil {
		return nil, nil
	}
	return &Item{
		Barcode:  payload.ItemData.Barcode,
		Library:  payload.ItemData.Library,
		Location: payload.ItemData.Location,
	}, nil
}

// UserByEmail searches users by email and returns the first match's full
// record, or (nil, nil) when the address is unknown.
func (c *Client) UserByEmail(ctx context.Context, email string) (*User, error) {
	params := url.Values{
		"q":      {"email~" + email},
		"limit":  {"10"},
		"offset": {"0"},
	}
	var payload struct {
		TotalRecordCount int `json:"total_record_count"`
		Users            []struct {
			PrimaryID string `json:"primary_id"`
		} `json:"user"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/users?"+params.Encode(), &payload); err != nil {
		return nil, err
	}
	if payload.TotalRecordCount == 0 || len(payload.Users) == 0 {
		return nil, nil
	}
	return c.User(ctx, payload.Users[0].PrimaryID)
}

// User fetches full user detail by primary id, or (nil, nil) when Alma
// flags the id as unknown.
func (c *Client) User(ctx context.Context, primaryID string) (*User, error) {
	var payload struct {
		ErrorsExist       bool     `json:"errorsExist"`
		PrimaryID         string   `json:"primary_id"`
		UserGroup         CodeDesc `json:"user_group"`
		PreferredLanguage CodeDesc `json:"preferred_language"`
		RSLibraries       []struct {
			Code CodeDesc `json:"code"`
		} `json:"rs_library"`
	}
	err := c.getJSON(ctx, c.baseURL+"/users/"+url.PathEscape(primaryID), &payload)
	if err != nil {
		return nil, err
	}
	if payload.ErrorsExist {
		return nil, nil
	}
	user := &User{
		PrimaryID:         payload.PrimaryID,
		UserGroup:         payload.UserGroup,
		PreferredLanguage: payload.PreferredLanguage.Desc,
	}
	if len(payload.RSLibraries) > 0 {
		user.RSLibraryCode = payload.RSLibraries[0].Code.Value
		user.RSLibraryName = payload.RSLibraries[0].Code.Desc
	}
	return user, nil
}

// HoldingsByISBN searches the LSM gateway for bibliographic records with
// expanded item info.
func (c *Client) HoldingsByISBN(ctx context.Context, isbn string) ([]Bib, error) {
	params := url.Values{
		"query":        {"alma.isbn=" + isbn},
		"expand_items": {"true"},
	}
	var payload struct {
		Results []Bib `json:"results"`
	}
	if err := c.getJSON(ctx, c.lsmBaseURL+"/search?"+params.Encode(), &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "apikey "+c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		return apperrors.NewTransient("alma request failed", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return apperrors.NewTransient("alma response read failed", err)
	}
	if res.StatusCode >= 500 {
		return apperrors.NewTransient(fmt.Sprintf("alma returned HTTP %d", res.StatusCode), nil)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Error("could not decode alma response", zap.String("body", string(raw)))
		return apperrors.NewTransient("alma response decode failed", err)
	}
	return nil
}
