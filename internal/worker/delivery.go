package worker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shaiso/filequeue/internal/domain"
)

// maxResponseBody — сколько байт ответа upstream'а сохраняется для transaction API.
const maxResponseBody = 10 << 20

// Заголовки входящего запроса, которые не пересылаются upstream'у.
var skippedHeaders = map[string]struct{}{
	"Connection":          {},
	"Content-Length":      {},
	"Host":                {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Proxy-Connection":    {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// upstreamResponse — ответ upstream'а, нужный для уведомления.
type upstreamResponse struct {
	status int
	header http.Header
	body   []byte
}

// deliver отправляет тело элемента из working в upstream.
//
// Ошибка транспорта — resp == nil; ответ не 2xx — resp заполнен
// и ошибка оборачивает ErrDelivery.
func (d *Dispatcher) deliver(ctx context.Context, cfg domain.Endpoint, it item) (*upstreamResponse, error) {
	f, err := d.store.Open(d.name, it.filename, domain.StageWorking)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat item: %w", err)
	}

	req, err := d.newRequest(ctx, cfg, it, f, info.Size())
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrDelivery, err)
	}

	out := &upstreamResponse{status: resp.StatusCode, header: resp.Header, body: body}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, fmt.Errorf("%w: %s responded %d", ErrDelivery, req.URL.Redacted(), resp.StatusCode)
	}
	return out, nil
}

// newRequest строит исходящий запрос.
//
// С forwardMetadata метод и заголовки берутся из метаданных, а путь
// из метаданных разрешается относительно url endpoint'а. Без него —
// POST на url с Content-Type по расширению файла.
func (d *Dispatcher) newRequest(ctx context.Context, cfg domain.Endpoint, it item, body io.Reader, size int64) (*http.Request, error) {
	method := http.MethodPost
	target := cfg.URL
	header := make(http.Header)

	if cfg.ForwardMetadata {
		md, err := d.store.ReadMetadata(d.name, it.filename, domain.StageWorking)
		if err != nil {
			return nil, err
		}

		target, err = resolveURL(cfg.URL, md.URL)
		if err != nil {
			return nil, err
		}
		if md.Method != "" {
			method = strings.ToUpper(md.Method)
		}
		for key, value := range md.Headers {
			key = http.CanonicalHeaderKey(key)
			if _, skip := skippedHeaders[key]; skip {
				continue
			}
			header.Set(key, value)
		}
	} else {
		header.Set("Content-Type", domain.ContentTypeForFile(it.filename))
	}

	if it.correlated {
		header.Set(domain.TransactionIDHeader, it.transactionID)
	}

	carriesBody := method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
	if !carriesBody {
		body = nil
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header = header
	if carriesBody {
		req.ContentLength = size
		if size == 0 {
			req.Body = http.NoBody
		}
	}
	return req, nil
}

// resolveURL разрешает путь из метаданных относительно базового url.
func resolveURL(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse endpoint url: %w", err)
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse metadata url: %w", err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}
