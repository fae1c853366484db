package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/scribe/internal/aiclient"
	"github.com/starford/scribe/internal/documents"
	"github.com/starford/scribe/internal/execution"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/notebook"
	"github.com/starford/scribe/internal/testutil"
)

type echoClient struct{}

func (echoClient) Generate(_ context.Context, prompt, _ string) (aiclient.Response, error) {
	return aiclient.Response{Content: "answer: " + prompt, Model: "test"}, nil
}

func (echoClient) ExplainCode(_ context.Context, code, _ string) (aiclient.Response, error) {
	return aiclient.Response{Content: "explained: " + code, Model: "test"}, nil
}

func (echoClient) CompleteCode(_ context.Context, code, _ string) (aiclient.Response, error) {
	return aiclient.Response{Content: code + "\n# done", Model: "test"}, nil
}

// testEnv sets up a temp SQLite store, the domain services and a router.
// A non-empty authToken enables token mode.
func testEnv(t *testing.T, authToken string) (Services, http.Handler) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (Services, http.Handler) {
	t.Helper()
	db := testutil.TestDB(t)
	engine := notebook.New(db, nil)
	exec := execution.New(engine, db, echoClient{}, nil)
	t.Cleanup(func() { _ = exec.Close(context.Background()) })
	docs := documents.New(db, engine, nil, documents.WithForgetter(exec))

	svc := Services{Documents: docs, Engine: engine, Executor: exec, Store: db}
	return svc, NewRouter(svc, authEnabled, token, sseHandler)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func cellIDs(cells []models.Cell) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.ID
	}
	return out
}

func TestCreateAndGetDocument(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/documents", CreateDocumentRequest{Title: "Lab", Mode: "notebook"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	created := decode[DocumentDetail](t, w)
	if created.Title != "Lab" || created.Mode != models.ModeNotebook {
		t.Errorf("created = %+v", created.Document)
	}
	if len(created.Cells) != 1 || created.Cells[0].Kind != models.KindCode || created.Cells[0].Status != models.StatusIdle {
		t.Errorf("default cell = %+v", created.Cells)
	}

	w = do(t, router, http.MethodGet, "/documents/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if etag := w.Header().Get("ETag"); etag != `"`+created.ETag+`"` {
		t.Errorf("ETag header = %q, want %q", etag, created.ETag)
	}
}

func TestCreateDocument_InvalidMode(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/documents", CreateDocumentRequest{Mode: "slides"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid mode = %d, want 400", w.Code)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/documents/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing document = %d, want 404", w.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")
	created := decode[DocumentDetail](t, do(t, router, http.MethodPost, "/documents", CreateDocumentRequest{Title: "v1"}))

	title := "v2"
	body, _ := json.Marshal(UpdateDocumentRequest{Title: &title})
	req := httptest.NewRequest(http.MethodPatch, "/documents/"+created.ID, bytes.NewReader(body))
	req.Header.Set("If-Match", `"`+created.ETag+`"`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}

	// The old ETag is stale now.
	req = httptest.NewRequest(http.MethodPatch, "/documents/"+created.ID, bytes.NewReader(body))
	req.Header.Set("If-Match", created.ETag)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("stale update = %d, want 409", w.Code)
	}
}

func TestUpdateWithoutFields(t *testing.T) {
	_, router := testEnv(t, "")
	created := decode[DocumentDetail](t, do(t, router, http.MethodPost, "/documents", nil))
	w := do(t, router, http.MethodPatch, "/documents/"+created.ID, map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty patch = %d, want 400", w.Code)
	}
}

func TestSearchDocuments(t *testing.T) {
	_, router := testEnv(t, "")
	for _, title := range []string{"Alpha", "beta", "Gamma"} {
		do(t, router, http.MethodPost, "/documents", CreateDocumentRequest{Title: title})
	}

	w := do(t, router, http.MethodGet, "/documents?sort=title", nil)
	all := decode[DocumentListResponse](t, w)
	var got []string
	for _, d := range all.Documents {
		got = append(got, d.Title)
	}
	if diff := cmp.Diff([]string{"Alpha", "beta", "Gamma"}, got); diff != "" {
		t.Errorf("titles (-want +got):\n%s", diff)
	}

	w = do(t, router, http.MethodGet, "/documents?q=ALP", nil)
	if res := decode[DocumentListResponse](t, w); res.Total != 1 || res.Documents[0].Title != "Alpha" {
		t.Errorf("q=ALP = %+v", res)
	}

	w = do(t, router, http.MethodGet, "/documents?q=zzz", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"documents":[]`) {
		t.Errorf("unmatched search = %d %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/documents?sort=size", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown sort = %d, want 400", w.Code)
	}
}

func TestDeleteDocument_SelectionFallback(t *testing.T) {
	_, router := testEnv(t, "")
	a := decode[DocumentDetail](t, do(t, router, http.MethodPost, "/documents", CreateDocumentRequest{Title: "A"}))
	b := decode[DocumentDetail](t, do(t, router, http.MethodPost, "/documents", CreateDocumentRequest{Title: "B"}))

	// B was created last and is selected.
	w := do(t, router, http.MethodDelete, "/documents/"+b.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	sel := decode[SelectionResponse](t, do(t, router, http.MethodGet, "/selection", nil))
	if sel.Document == nil || sel.Document.ID != a.ID {
		t.Errorf("selection after delete = %+v", sel.Document)
	}

	if w := do(t, router, http.MethodDelete, "/documents/"+b.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestFavoriteModeAndStats(t *testing.T) {
	_, router := testEnv(t, "")
	d := decode[DocumentDetail](t, do(t, router, http.MethodPost, "/documents", CreateDocumentRequest{Title: "x"}))

	if w := do(t, router, http.MethodPost, "/documents/"+d.ID+"/favorite", nil); w.Code != http.StatusOK {
		t.Fatalf("favorite = %d", w.Code)
	}
	w := do(t, router, http.MethodPut, "/documents/"+d.ID+"/mode", ModeRequest{Mode: "notebook"})
	if w.Code != http.StatusOK {
		t.Fatalf("mode = %d, body = %s", w.Code, w.Body.String())
	}
	if nb := decode[DocumentDetail](t, w); len(nb.Cells) != 1 {
		t.Errorf("switch to notebook cells = %d, want 1", len(nb.Cells))
	}

	stats := decode[StatsResponse](t, do(t, router, http.MethodGet, "/documents/stats", nil))
	if diff := cmp.Diff(StatsResponse{Total: 1, Favorites: 1, Notebook: 1}, stats); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
}

func TestFavoritesAndRecent(t *testing.T) {
	_, router := testEnv(t, "")
	a := decode[DocumentDetail](t, do(t, router, http.MethodPost, "/documents", CreateDocumentRequest{Title: "a"}))
	b := decode[DocumentDetail](t, do(t, router, http.MethodPost, "/documents", CreateDocumentRequest{Title: "b"}))
	do(t, router, http.MethodPost, "/documents", CreateDocumentRequest{Title: "c"})

	do(t, router, http.MethodPost, "/documents/"+b.ID+"/favorite", nil)
	favs := decode[DocumentListResponse](t, do(t, router, http.MethodGet, "/documents?favorite=true", nil))
	if favs.Total != 1 || favs.Documents[0].ID != b.ID {
		t.Errorf("favorites = %+v", favs)
	}
	if w := do(t, router, http.MethodGet, "/documents?favorite=maybe", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad favorite flag = %d, want 400", w.Code)
	}

	time.Sleep(5 * time.Millisecond)
	title := "a2"
	do(t, router, http.MethodPatch, "/documents/"+a.ID, UpdateDocumentRequest{Title: &title})

	recent := decode[DocumentListResponse](t, do(t, router, http.MethodGet, "/documents/recent?n=2", nil))
	if recent.Total != 2 || recent.Documents[0].ID != a.ID {
		t.Errorf("recent = %+v, want 2 with the renamed document first", recent)
	}
	if all := decode[DocumentListResponse](t, do(t, router, http.MethodGet, "/documents/recent", nil)); all.Total != 3 {
		t.Errorf("recent default total = %d, want 3", all.Total)
	}
	if w := do(t, router, http.MethodGet, "/documents/recent?n=-1", nil); w.Code != http.StatusBadRequest {
		t.Errorf("negative n = %d, want 400", w.Code)
	}
}

func TestCellStructuralOps(t *testing.T) {
	_, router := testEnv(t, "")
	d := decode[DocumentDetail](t, do(t, router, http.MethodPost, "/documents", CreateDocumentRequest{Mode: "notebook"}))
	first := d.Cells[0].ID

	second := decode[models.Cell](t, do(t, router, http.MethodPost, "/documents/"+d.ID+"/cells", CreateCellRequest{Kind: "markdown"}))
	zero := 0
	top := decode[models.Cell](t, do(t, router, http.MethodPost, "/documents/"+d.ID+"/cells", CreateCellRequest{Kind: "text", Index: &zero}))

	cells := decode[[]models.Cell](t, do(t, router, http.MethodGet, "/documents/"+d.ID+"/cells", nil))
	if diff := cmp.Diff([]string{top.ID, first, second.ID}, cellIDs(cells)); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}

	mv := decode[MoveResponse](t, do(t, router, http.MethodPost, "/cells/"+top.ID+"/move-up", nil))
	if mv.Moved {
		t.Error("move-up on first cell should be a no-op")
	}
	mv = decode[MoveResponse](t, do(t, router, http.MethodPost, "/cells/"+top.ID+"/move-down", nil))
	if !mv.Moved || mv.Cells[1].ID != top.ID {
		t.Errorf("move-down = %+v", mv)
	}

	dup := decode[models.Cell](t, do(t, router, http.MethodPost, "/cells/"+second.ID+"/duplicate", nil))
	if dup.Order != 3 || dup.Kind != models.KindMarkdown {
		t.Errorf("duplicate = %+v", dup)
	}
	if w := do(t, router, http.MethodDelete, "/cells/"+dup.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete cell = %d", w.Code)
	}

	above := decode[models.Cell](t, do(t, router, http.MethodPost, "/cells/"+first+"/insert-above", InsertCellRequest{Kind: "code"}))
	if above.Order != 0 {
		t.Errorf("insert-above order = %d, want 0", above.Order)
	}

	cells = decode[[]models.Cell](t, do(t, router, http.MethodGet, "/documents/"+d.ID+"/cells", nil))
	for i, c := range cells {
		if c.Order != i {
			t.Errorf("cell %d has order %d", i, c.Order)
		}
	}

	far := 9
	w := do(t, router, http.MethodPost, "/documents/"+d.ID+"/cells", CreateCellRequest{Index: &far})
	if w.Code != http.StatusBadRequest {
		t.Errorf("insert out of range = %d, want 400", w.Code)
	}
}

func TestUpdateCell(t *testing.T) {
	_, router := testEnv(t, "")
	d := decode[DocumentDetail](t, do(t, router, http.MethodPost, "/documents", CreateDocumentRequest{Mode: "notebook"}))
	id := d.Cells[0].ID

	input, kind := "## heading", "markdown"
	w := do(t, router, http.MethodPatch, "/cells/"+id, UpdateCellRequest{Input: &input, Kind: &kind})
	if w.Code != http.StatusOK {
		t.Fatalf("patch cell = %d, body = %s", w.Code, w.Body.String())
	}
	c := decode[models.Cell](t, w)
	if c.Input != input || c.Kind != models.KindMarkdown {
		t.Errorf("cell = %+v", c)
	}

	bad, other := "video", "print(2)"
	if w := do(t, router, http.MethodPatch, "/cells/"+id, UpdateCellRequest{Input: &other, Kind: &bad}); w.Code != http.StatusBadRequest {
		t.Errorf("invalid kind = %d, want 400", w.Code)
	}
	got := decode[CellDetail](t, do(t, router, http.MethodGet, "/cells/"+id, nil))
	if got.Input != input || got.Kind != models.KindMarkdown {
		t.Errorf("cell after rejected patch = %+v", got.Cell)
	}
}

func TestRunCell(t *testing.T) {
	svc, router := testEnv(t, "")
	d := decode[DocumentDetail](t, do(t, router, http.MethodPost, "/documents", CreateDocumentRequest{Mode: "notebook"}))
	id := d.Cells[0].ID

	// Empty input: no-op.
	w := do(t, router, http.MethodPost, "/cells/"+id+"/run", nil)
	if tk := decode[execution.Ticket](t, w); w.Code != http.StatusOK || tk.Started || tk.Reason != execution.ReasonEmptyInput {
		t.Errorf("empty run = %d %+v", w.Code, tk)
	}

	input := "explain this: x=1"
	do(t, router, http.MethodPatch, "/cells/"+id, UpdateCellRequest{Input: &input})
	w = do(t, router, http.MethodPost, "/cells/"+id+"/run", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("run = %d, body = %s", w.Code, w.Body.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if st, err := svc.Executor.Wait(ctx, id); err != nil || st != models.StatusCompleted {
		t.Fatalf("Wait = %s, %v", st, err)
	}

	detail := decode[CellDetail](t, do(t, router, http.MethodGet, "/cells/"+id, nil))
	if detail.Output != "explained: "+input || detail.Status != models.StatusCompleted {
		t.Errorf("cell after run = %+v", detail.Cell)
	}
	if len(detail.Exchanges) != 1 || detail.Exchanges[0].Route != models.RouteExplain {
		t.Errorf("exchanges = %+v", detail.Exchanges)
	}

	c := decode[models.Cell](t, do(t, router, http.MethodPost, "/cells/"+id+"/clear-output", nil))
	if c.Output != "" {
		t.Errorf("output after clear = %q", c.Output)
	}
}

func TestRunCell_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodPost, "/cells/ghost/run", nil); w.Code != http.StatusNotFound {
		t.Errorf("run missing cell = %d, want 404", w.Code)
	}
}

func TestSelectCell(t *testing.T) {
	_, router := testEnv(t, "")
	d := decode[DocumentDetail](t, do(t, router, http.MethodPost, "/documents", CreateDocumentRequest{Mode: "notebook"}))
	do(t, router, http.MethodPost, "/documents", CreateDocumentRequest{Title: "other"})

	if w := do(t, router, http.MethodPost, "/cells/"+d.Cells[0].ID+"/select", nil); w.Code != http.StatusOK {
		t.Fatalf("select cell = %d", w.Code)
	}
	sel := decode[SelectionResponse](t, do(t, router, http.MethodGet, "/selection", nil))
	if sel.Document == nil || sel.Document.ID != d.ID || sel.Cell == nil || sel.Cell.ID != d.Cells[0].ID {
		t.Errorf("selection = %+v", sel)
	}
}

func TestTags(t *testing.T) {
	_, router := testEnv(t, "")
	d := decode[DocumentDetail](t, do(t, router, http.MethodPost, "/documents", nil))

	w := do(t, router, http.MethodPost, "/tags", CreateTagRequest{Name: "research", Color: "#336"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create tag = %d", w.Code)
	}
	tag := decode[models.Tag](t, w)
	if w := do(t, router, http.MethodPost, "/tags", CreateTagRequest{Name: "research"}); w.Code != http.StatusConflict {
		t.Errorf("duplicate tag = %d, want 409", w.Code)
	}

	doc := decode[models.Document](t, do(t, router, http.MethodPut, "/documents/"+d.ID+"/tags/"+tag.ID, nil))
	if len(doc.Tags) != 1 || doc.Tags[0].Name != "research" {
		t.Errorf("tags after attach = %+v", doc.Tags)
	}
	doc = decode[models.Document](t, do(t, router, http.MethodDelete, "/documents/"+d.ID+"/tags/"+tag.ID, nil))
	if len(doc.Tags) != 0 {
		t.Errorf("tags after detach = %+v", doc.Tags)
	}

	if w := do(t, router, http.MethodDelete, "/tags/"+tag.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete tag = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/tags/"+tag.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("get deleted tag = %d, want 404", w.Code)
	}
}

func TestImportJSON_Clipboard(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/documents/import", ImportRequest{Content: "some pasted text"})
	if w.Code != http.StatusCreated {
		t.Fatalf("import = %d, body = %s", w.Code, w.Body.String())
	}
	if d := decode[DocumentDetail](t, w); d.Title != "Imported from Clipboard" {
		t.Errorf("title = %q", d.Title)
	}

	if w := do(t, router, http.MethodPost, "/documents/import", ImportRequest{Name: "x.md"}); w.Code != http.StatusBadRequest {
		t.Errorf("empty import = %d, want 400", w.Code)
	}
}

func uploadFile(t *testing.T, router http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/documents/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestImportUpload_Notebook(t *testing.T) {
	_, router := testEnv(t, "")
	nb := `{"cells":[{"cell_type":"markdown","source":"# Intro"},{"cell_type":"code","source":["x = 1\n","print(x)"]}],"nbformat":4}`
	w := uploadFile(t, router, "analysis.ipynb", []byte(nb))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	d := decode[DocumentDetail](t, w)
	if d.Title != "analysis" || d.Mode != models.ModeNotebook || len(d.Cells) != 2 {
		t.Fatalf("imported = %+v", d)
	}
	if d.Cells[1].Input != "x = 1\nprint(x)" {
		t.Errorf("code cell input = %q", d.Cells[1].Input)
	}
}

func TestImportUpload_MissingFileField(t *testing.T) {
	_, router := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/documents/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}

func TestImportUpload_InvalidFilename(t *testing.T) {
	if _, err := importName("../escape.md"); err == nil {
		t.Error("traversal name should be rejected")
	}
	if got, err := importName("notes.md"); err != nil || got != "notes.md" {
		t.Errorf("importName = %q, %v", got, err)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	body, _ := json.Marshal(CreateDocumentRequest{Title: "auth"})
	req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	if w := do(t, router, http.MethodGet, "/documents", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/documents", nil); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingSSE is a minimal SSE handler stub: it writes headers and blocks
// until the request context is done.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "secret", blockingSSE)

	// No token → 401.
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
