package helpers

import (
	"bufio"
	"bytes"
	"net/http"
	"sync"
)

// MockHTTP is http.RoundTripper for tests. Records every request URL.
type MockHTTP struct {
	Fun    func(*http.Request) (*http.Response, error)
	Header []byte
	Body   []byte
	Err    error

	mu   sync.Mutex
	urls []string
}

func (m *MockHTTP) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.urls = append(m.urls, req.URL.String())
	m.mu.Unlock()

	if m.Fun != nil {
		return m.Fun(req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	header := m.Header
	if header == nil {
		header = []byte("HTTP/1.0 200 OK\r\n\r\n")
	}
	rb := make([]byte, 0, len(header)+len(m.Body))
	rb = append(rb, header...)
	rb = append(rb, m.Body...)
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(rb)), req)
}

func (m *MockHTTP) Client() *http.Client { return &http.Client{Transport: m} }

// URLs returns copy of requested URLs in order.
func (m *MockHTTP) URLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.urls))
	copy(out, m.urls)
	return out
}
