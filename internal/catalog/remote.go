package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/pagination"
)

// Getter issues GET requests; *httpclient.CircuitBreakerClient satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// remoteMaxPages guards against a product service that never reports the
// last page.
const remoteMaxPages = 100

// RemoteLoader pages through GET {BaseURL}/api/v1/products on a product
// service that speaks the same envelope as this one.
type RemoteLoader struct {
	client  Getter
	baseURL string
}

func NewRemoteLoader(client Getter, baseURL string) *RemoteLoader {
	return &RemoteLoader{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

type remotePage struct {
	Data *pagination.Result[domain.Product] `json:"data"`
}

func (l *RemoteLoader) Load(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product

	for page := 1; page <= remoteMaxPages; page++ {
		result, err := l.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		products = append(products, result.Data...)
		if !result.HasNext {
			return products, nil
		}
	}

	return nil, fmt.Errorf("catalog service: more than %d pages", remoteMaxPages)
}

func (l *RemoteLoader) fetchPage(ctx context.Context, page int) (*pagination.Result[domain.Product], error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("per_page", fmt.Sprint(pagination.MaxPerPage))

	resp, err := l.client.Get(ctx, l.baseURL+"/api/v1/products?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch catalog page %d: %w", page, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "catalog service")
	}
	defer resp.Body.Close()

	var body remotePage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode catalog page %d: %w", page, err)
	}
	if body.Data == nil {
		return nil, fmt.Errorf("catalog page %d: missing data", page)
	}
	return body.Data, nil
}
