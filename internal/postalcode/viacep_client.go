package postalcode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

type viaCEPResponse struct {
	CEP        string `json:"cep"`
	Logradouro string `json:"logradouro"`
	Bairro     string `json:"bairro"`
	Localidade string `json:"localidade"`
	UF         string `json:"uf"`
	Erro       any    `json:"erro"`
}

// missing reports the not-found marker. The service has sent it both as a
// boolean and as the string "true".
func (r viaCEPResponse) missing() bool {
	switch v := r.Erro.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

// Client queries a ViaCEP compatible endpoint: GET {base}/{cep}/json/.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) Lookup(ctx context.Context, postalCode string) (Address, error) {
	code, err := normalize(postalCode)
	if err != nil {
		return Address{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json/", c.baseURL, code), nil)
	if err != nil {
		return Address{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrLookupUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusBadRequest:
		return Address{}, ErrNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		return Address{}, fmt.Errorf("%w: status %d", ErrLookupUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Address{}, fmt.Errorf("%w: status %d", ErrLookupBadResponse, resp.StatusCode)
	}

	var payload viaCEPResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrLookupBadResponse, err)
	}
	if payload.missing() {
		return Address{}, ErrNotFound
	}

	return Address{
		PostalCode:   code,
		Street:       strings.TrimSpace(payload.Logradouro),
		Neighborhood: strings.TrimSpace(payload.Bairro),
		City:         strings.TrimSpace(payload.Localidade),
		State:        strings.ToUpper(strings.TrimSpace(payload.UF)),
	}, nil
}
