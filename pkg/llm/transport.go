package llm

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// indexOrder rewrites OpenAI embedding responses so that the data array is
// sorted by its index field. langchaingo reads vectors positionally.
type indexOrder struct {
	next http.RoundTripper
}

func (t *indexOrder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusOK || !strings.HasSuffix(req.URL.Path, "/embeddings") {
		return resp, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read embeddings response: %w", err)
	}
	if body, err = sortByIndex(body); err != nil {
		return nil, err
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	return resp, nil
}

func sortByIndex(body []byte) ([]byte, error) {
	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return body, nil
	}

	items := data.Array()
	less := func(i, j int) bool { return items[i].Get("index").Int() < items[j].Get("index").Int() }
	if sort.SliceIsSorted(items, less) {
		return body, nil
	}
	sort.SliceStable(items, less)

	raw := make([]string, len(items))
	for i, item := range items {
		raw[i] = item.Raw
	}
	body, err := sjson.SetRawBytes(body, "data", []byte("["+strings.Join(raw, ",")+"]"))
	if err != nil {
		return nil, fmt.Errorf("failed to reorder embeddings: %w", err)
	}
	return body, nil
}
