package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fincore/backend/internal/domain/ledger"
	"github.com/fincore/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds the HTTP source adapter settings
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPSource fetches sale and transaction records from the external
// bookkeeping system's REST API. It owns credential handling; callers only
// see domain records.
type HTTPSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPSource creates an HTTP-backed ExternalSalesSource
func NewHTTPSource(cfg Config, logger *zap.Logger) *HTTPSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// wire types of the bookkeeping API

type recordPayload struct {
	ExternalID   string               `json:"external_id"`
	Kind         string               `json:"kind"`
	Customer     string               `json:"customer"`
	Description  string               `json:"description"`
	Amount       string               `json:"amount"`
	Date         time.Time            `json:"date"`
	Installments []installmentPayload `json:"installments,omitempty"`
	Count        int                  `json:"installment_count,omitempty"`
}

type installmentPayload struct {
	Number  int       `json:"number"`
	Amount  string    `json:"amount"`
	DueDate time.Time `json:"due_date"`
}

type pagePayload struct {
	Records  []recordPayload `json:"records"`
	HasMore  bool            `json:"has_more"`
	NextPage int             `json:"next_page"`
}

// FetchRecords pulls one page of records for the date range
func (s *HTTPSource) FetchRecords(ctx context.Context, req ledger.FetchRequest) (*ledger.FetchResponse, error) {
	endpoint, err := s.buildURL(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("source request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source returned status %d", resp.StatusCode)
	}

	var page pagePayload
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode source response: %w", err)
	}

	records := make([]ledger.ExternalRecord, 0, len(page.Records))
	for _, payload := range page.Records {
		record, err := toDomainRecord(payload)
		if err != nil {
			// A malformed record is the caller's skip decision, not a fetch
			// failure; pass it through with a zero amount so validation
			// classifies it
			s.logger.Warn("malformed source record",
				zap.String("external_id", payload.ExternalID),
				zap.Error(err),
			)
		}
		records = append(records, record)
	}

	return &ledger.FetchResponse{
		Records:  records,
		HasMore:  page.HasMore,
		NextPage: page.NextPage,
	}, nil
}

func (s *HTTPSource) buildURL(req ledger.FetchRequest) (string, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid source base URL: %w", err)
	}
	u = u.JoinPath("api", "records")

	q := u.Query()
	q.Set("user_id", req.UserID.String())
	q.Set("start", req.Start.Format("2006-01-02"))
	q.Set("end", req.End.Format("2006-01-02"))
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("page_size", strconv.Itoa(req.PageSize))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func toDomainRecord(payload recordPayload) (ledger.ExternalRecord, error) {
	record := ledger.ExternalRecord{
		ExternalID:       payload.ExternalID,
		Kind:             ledger.RecordKind(payload.Kind),
		Customer:         payload.Customer,
		Description:      payload.Description,
		Date:             payload.Date,
		InstallmentCount: payload.Count,
	}

	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil {
		return record, fmt.Errorf("invalid amount %q: %w", payload.Amount, err)
	}
	record.Amount = valueobject.NewMoneyBRL(amount)

	for _, inst := range payload.Installments {
		instAmount, err := decimal.NewFromString(inst.Amount)
		if err != nil {
			return record, fmt.Errorf("invalid installment amount %q: %w", inst.Amount, err)
		}
		record.Installments = append(record.Installments, ledger.ExternalInstallment{
			Number:  inst.Number,
			Amount:  valueobject.NewMoneyBRL(instAmount),
			DueDate: inst.DueDate,
		})
	}
	return record, nil
}

// Ensure HTTPSource implements ExternalSalesSource
var _ ledger.ExternalSalesSource = (*HTTPSource)(nil)
