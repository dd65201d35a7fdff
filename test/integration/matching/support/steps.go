package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/shelfocr/internal/catalog"
	"github.com/MeKo-Tech/shelfocr/internal/testutil"
)

const requestTimeout = 10 * time.Second

func splitPath(path string) []string { return strings.Split(path, ".") }

func (tc *TestContext) aSeededProductStore() error { return tc.ensureStore(true) }

func (tc *TestContext) anEmptyProductStore() error { return tc.ensureStore(false) }

// theCatalogContains imports a table whose header row names the columns.
func (tc *TestContext) theCatalogContains(table *godog.Table) error {
	if err := tc.ensureStore(false); err != nil {
		return err
	}
	if len(table.Rows) < 2 {
		return fmt.Errorf("catalog table needs a header and at least one row")
	}
	header := make([]string, len(table.Rows[0].Cells))
	for i, c := range table.Rows[0].Cells {
		header[i] = c.Value
	}
	rows := make([]map[string]string, 0, len(table.Rows)-1)
	for _, r := range table.Rows[1:] {
		row := make(map[string]string, len(header))
		for i, c := range r.Cells {
			row[header[i]] = c.Value
		}
		rows = append(rows, row)
	}
	_, err := tc.Store.Import(tc.ctx, catalog.FromRows(rows, "name"))
	return err
}

func (tc *TestContext) theCameraReads(text string) error {
	tc.Texts = append(tc.Texts, text)
	return nil
}

func (tc *TestContext) theOCREngineIsUnavailable() error {
	tc.Failures = true
	return nil
}

func (tc *TestContext) rateLimitingAllows(n int) error {
	tc.ServerCfg.RateLimit = serverRateLimit(n)
	return nil
}

func (tc *TestContext) theKioskServerIsRunning() error { return tc.StartServer() }

func (tc *TestContext) do(req *http.Request) error {
	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	tc.record(resp.StatusCode, headers, body)
	return nil
}

func (tc *TestContext) submitFrame(format string) error {
	if err := tc.StartServer(); err != nil {
		return err
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if format != "" {
		if err := mw.WriteField("format", format); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("image", "frame.png")
	if err != nil {
		return err
	}
	if err := png.Encode(part, testutil.LabelFrame()); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(tc.ctx, http.MethodPost, tc.HTTPServer.URL+"/api/v1/match", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return tc.do(req)
}

func (tc *TestContext) iSubmitALabelFrame() error { return tc.submitFrame("") }

func (tc *TestContext) iSubmitALabelFrameAs(format string) error { return tc.submitFrame(format) }

func (tc *TestContext) iSubmitLabelFrames(n int) error {
	for range n {
		if err := tc.submitFrame(""); err != nil {
			return err
		}
	}
	return nil
}

func (tc *TestContext) iRequest(path string) error {
	if err := tc.StartServer(); err != nil {
		return err
	}
	u, err := url.Parse(tc.HTTPServer.URL + path)
	if err != nil {
		return err
	}
	u.RawQuery = u.Query().Encode()
	req, err := http.NewRequestWithContext(tc.ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	return tc.do(req)
}

// iStreamALabelFrame sends one binary frame on /ws/match and records the
// reply as the last response.
func (tc *TestContext) iStreamALabelFrame() error {
	if err := tc.StartServer(); err != nil {
		return err
	}
	wsURL := "ws" + strings.TrimPrefix(tc.HTTPServer.URL, "http") + "/ws/match"
	conn, resp, err := websocket.DefaultDialer.DialContext(tc.ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	var frame bytes.Buffer
	if err := png.Encode(&frame, testutil.LabelFrame()); err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame.Bytes()); err != nil {
		return err
	}
	_ = conn.SetReadDeadline(time.Now().Add(requestTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	tc.record(http.StatusOK, nil, data)
	return nil
}

func (tc *TestContext) theResponseStatusShouldBe(status int) error {
	if tc.LastStatus != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, tc.LastStatus, tc.LastBody)
	}
	return nil
}

func (tc *TestContext) theResponseFieldShouldBe(path, want string) error {
	v, err := tc.field(path)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("field %s: expected %q, got %q", path, want, got)
	}
	return nil
}

func (tc *TestContext) theResponseFieldShouldHaveItems(path string, n int) error {
	v, err := tc.field(path)
	if err != nil {
		return err
	}
	items, ok := v.([]any)
	if !ok {
		return fmt.Errorf("field %s is not a list", path)
	}
	if len(items) != n {
		return fmt.Errorf("field %s: expected %d items, got %d", path, n, len(items))
	}
	return nil
}

func (tc *TestContext) theMatchedProductShouldBe(name string) error {
	return tc.theResponseFieldShouldBe("match.best.name", name)
}

func (tc *TestContext) theMatchShouldBe(decision string) error {
	return tc.theResponseFieldShouldBe("match.accepted", strconv.FormatBool(decision == "accepted"))
}

func (tc *TestContext) theResponseHeaderShouldBe(name, want string) error {
	if got := tc.LastHeaders[http.CanonicalHeaderKey(name)]; got != want {
		return fmt.Errorf("header %s: expected %q, got %q", name, want, got)
	}
	return nil
}

func (tc *TestContext) theResponseShouldBeAPNGImage() error {
	if _, err := png.Decode(bytes.NewReader(tc.LastBody)); err != nil {
		return fmt.Errorf("response is not a PNG: %w", err)
	}
	return nil
}

func (tc *TestContext) theResponseTextShouldBe(want string) error {
	if got := strings.TrimSpace(string(tc.LastBody)); got != want {
		return fmt.Errorf("expected body %q, got %q", want, got)
	}
	return nil
}

func (tc *TestContext) theResponseShouldBeValidJSON() error {
	if !json.Valid(tc.LastBody) {
		return fmt.Errorf("response is not JSON: %s", tc.LastBody)
	}
	return nil
}

// Register binds every step to sc.
func (tc *TestContext) Register(sc *godog.ScenarioContext) {
	sc.Step(`^a product store seeded with the sample products$`, tc.aSeededProductStore)
	sc.Step(`^an empty product store$`, tc.anEmptyProductStore)
	sc.Step(`^the catalog contains:$`, tc.theCatalogContains)
	sc.Step(`^the camera reads "([^"]*)"$`, tc.theCameraReads)
	sc.Step(`^the OCR engine is unavailable$`, tc.theOCREngineIsUnavailable)
	sc.Step(`^rate limiting allows (\d+) requests? per minute$`, tc.rateLimitingAllows)
	sc.Step(`^the kiosk server is running$`, tc.theKioskServerIsRunning)

	sc.Step(`^I submit a label frame$`, tc.iSubmitALabelFrame)
	sc.Step(`^I submit a label frame as "([^"]*)"$`, tc.iSubmitALabelFrameAs)
	sc.Step(`^I submit (\d+) label frames$`, tc.iSubmitLabelFrames)
	sc.Step(`^I request "([^"]*)"$`, tc.iRequest)
	sc.Step(`^I stream a label frame over the websocket$`, tc.iStreamALabelFrame)

	sc.Step(`^the response status should be (\d+)$`, tc.theResponseStatusShouldBe)
	sc.Step(`^the response should be valid JSON$`, tc.theResponseShouldBeValidJSON)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, tc.theResponseFieldShouldBe)
	sc.Step(`^the response field "([^"]*)" should have (\d+) items?$`, tc.theResponseFieldShouldHaveItems)
	sc.Step(`^the matched product should be "([^"]*)"$`, tc.theMatchedProductShouldBe)
	sc.Step(`^the match should be (accepted|rejected)$`, tc.theMatchShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, tc.theResponseHeaderShouldBe)
	sc.Step(`^the response should be a PNG image$`, tc.theResponseShouldBeAPNGImage)
	sc.Step(`^the response text should be "([^"]*)"$`, tc.theResponseTextShouldBe)
}
