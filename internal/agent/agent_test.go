package agent

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pmadusud/salesagent/internal/console"
	"github.com/pmadusud/salesagent/internal/search"
	"github.com/pmadusud/salesagent/internal/types"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type fakeAPI struct {
	mu           sync.Mutex
	assistantReq openai.AssistantRequest
	messages     []openai.MessageRequest
	runRequests  []openai.RunRequest
	runs         []openai.Run // served in order by CreateRun, RetrieveRun and SubmitToolOutputs
	submitted    []openai.SubmitToolOutputsRequest
	replies      openai.MessagesList
	files        map[string]string
	deleted      []string
	deleteErr    error
	cancelled    int
}

func (f *fakeAPI) nextRun() openai.Run {
	run := f.runs[0]
	if len(f.runs) > 1 {
		f.runs = f.runs[1:]
	}
	return run
}

func (f *fakeAPI) CreateAssistant(_ context.Context, req openai.AssistantRequest) (openai.Assistant, error) {
	f.assistantReq = req
	return openai.Assistant{ID: "asst_1"}, nil
}

func (f *fakeAPI) DeleteAssistant(_ context.Context, id string) (openai.AssistantDeleteResponse, error) {
	f.deleted = append(f.deleted, id)
	return openai.AssistantDeleteResponse{ID: id, Deleted: true}, f.deleteErr
}

func (f *fakeAPI) CreateThread(context.Context, openai.ThreadRequest) (openai.Thread, error) {
	return openai.Thread{ID: "thread_1"}, nil
}

func (f *fakeAPI) DeleteThread(_ context.Context, id string) (openai.ThreadDeleteResponse, error) {
	f.deleted = append(f.deleted, id)
	return openai.ThreadDeleteResponse{ID: id, Deleted: true}, nil
}

func (f *fakeAPI) CreateMessage(_ context.Context, _ string, req openai.MessageRequest) (openai.Message, error) {
	f.messages = append(f.messages, req)
	return openai.Message{ID: "msg_user"}, nil
}

func (f *fakeAPI) ListMessage(context.Context, string, *int, *string, *string, *string, *string) (openai.MessagesList, error) {
	return f.replies, nil
}

func (f *fakeAPI) CreateRun(_ context.Context, _ string, req openai.RunRequest) (openai.Run, error) {
	f.runRequests = append(f.runRequests, req)
	return f.nextRun(), nil
}

func (f *fakeAPI) RetrieveRun(context.Context, string, string) (openai.Run, error) {
	return f.nextRun(), nil
}

func (f *fakeAPI) SubmitToolOutputs(_ context.Context, _ string, _ string, req openai.SubmitToolOutputsRequest) (openai.Run, error) {
	f.submitted = append(f.submitted, req)
	return f.nextRun(), nil
}

func (f *fakeAPI) CancelRun(context.Context, string, string) (openai.Run, error) {
	f.cancelled++
	return openai.Run{Status: openai.RunStatusCancelling}, nil
}

func (f *fakeAPI) GetFileContent(_ context.Context, fileID string) (openai.RawResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.files[fileID]
	if !ok {
		return openai.RawResponse{}, errors.New("file not found")
	}
	return openai.RawResponse{ReadCloser: io.NopCloser(strings.NewReader(body))}, nil
}

type fakeSearcher struct {
	queries []types.SearchQuery
	docs    []bson.D
}

func (f *fakeSearcher) Search(_ context.Context, q types.SearchQuery) *search.SearchResponse {
	f.queries = append(f.queries, q)
	return &search.SearchResponse{Documents: f.docs, TotalResults: len(f.docs), SearchMethod: types.SearchMethodHybrid}
}

func newTestSession(t *testing.T, api *fakeAPI, searcher *fakeSearcher, input string) (*Session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	cfg := SessionConfig{
		Model:               "gpt-4o",
		Name:                "Contoso Sales Agent",
		Temperature:         0.1,
		TopP:                0.1,
		MaxPromptTokens:     20480,
		MaxCompletionTokens: 10240,
		PollInterval:        time.Millisecond,
		RunTimeout:          time.Second,
		FilesDir:            t.TempDir(),
	}
	return NewSession(api, cfg, NewToolSet(searcher), console.New(strings.NewReader(input), &out, true)), &out
}

func TestLoadInstructions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instructions.txt")
	require.NoError(t, os.WriteFile(path, []byte("Use font {font_file_id} for charts."), 0o600))

	got, err := LoadInstructions(path, "assistant-font-1")
	require.NoError(t, err)
	assert.Equal(t, "Use font assistant-font-1 for charts.", got)

	got, err = LoadInstructions(path, "")
	require.NoError(t, err)
	assert.Contains(t, got, "{font_file_id}")

	_, err = LoadInstructions(filepath.Join(t.TempDir(), "missing.txt"), "")
	require.Error(t, err)
}

func TestLocalFileName(t *testing.T) {
	tests := []struct {
		attachment, fileID, want string
	}{
		{"sandbox:/mnt/data/sales_by_region.png", "file-1", "sales_by_region.file-1.png"},
		{"sandbox:/mnt/data/report.csv", "file-2", "report.file-2.csv"},
		{"chart", "file-3", "chart.file-3.png"},
		{"unknown", "file-4", "unknown.file-4.png"},
	}
	for _, tt := range tests {
		t.Run(tt.attachment, func(t *testing.T) {
			assert.Equal(t, tt.want, LocalFileName(tt.attachment, tt.fileID))
		})
	}
}

func textWithAnnotations(value string, annotations ...any) openai.MessageContent {
	return openai.MessageContent{Type: "text", Text: &openai.MessageText{Value: value, Annotations: annotations}}
}

func filePath(text, fileID string) map[string]any {
	return map[string]any{"type": "file_path", "text": text, "file_path": map[string]any{"file_id": fileID}}
}

func TestFileRefs(t *testing.T) {
	images := openai.Message{Content: []openai.MessageContent{
		{Type: "image_file", ImageFile: &openai.ImageFile{FileID: "img-1"}},
		{Type: "image_file", ImageFile: &openai.ImageFile{FileID: "img-2"}},
		textWithAnnotations("see chart", filePath("sandbox:/mnt/data/pie", "img-1")),
	}}
	assert.Equal(t, []FileRef{
		{FileID: "img-1", Name: "sandbox:/mnt/data/pie.png"},
		{FileID: "img-2", Name: "unknown"},
	}, FileRefs(images))

	attachments := openai.Message{Content: []openai.MessageContent{
		textWithAnnotations("download", filePath("sandbox:/mnt/data/tents.csv", "file-9"),
			map[string]any{"type": "file_citation", "text": "[1]"}),
	}}
	assert.Equal(t, []FileRef{{FileID: "file-9", Name: "sandbox:/mnt/data/tents.csv"}}, FileRefs(attachments))

	assert.Empty(t, FileRefs(openai.Message{Content: []openai.MessageContent{textWithAnnotations("plain")}}))
}

func TestDownloadAllFailure(t *testing.T) {
	var out bytes.Buffer
	d := NewDownloader(&fakeAPI{files: map[string]string{"a": "1"}}, t.TempDir(), console.New(strings.NewReader(""), &out, true))

	_, err := d.DownloadAll(context.Background(), []FileRef{{FileID: "a", Name: "a.txt"}, {FileID: "missing", Name: "b"}})
	require.ErrorContains(t, err, "missing")

	paths, err := d.DownloadAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestToolSetExecute(t *testing.T) {
	searcher := &fakeSearcher{docs: []bson.D{{{Key: "_id", Value: "p1"}, {Key: "content", Value: "Alpine tent"}}}}
	ts := NewToolSet(searcher)

	defs := ts.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, search.ToolName, defs[0].Function.Name)

	outputs := ts.Execute(context.Background(), []openai.ToolCall{
		{ID: "call_1", Function: openai.FunctionCall{Name: search.ToolName, Arguments: `{"search_content":"tents","limit":2}`}},
		{ID: "call_2", Function: openai.FunctionCall{Name: "fetch_sales_data", Arguments: `{}`}},
		{ID: "call_3", Function: openai.FunctionCall{Name: search.ToolName, Arguments: `{"limit":2}`}},
	})

	require.Len(t, outputs, 3)
	assert.Equal(t, "call_1", outputs[0].ToolCallID)
	assert.JSONEq(t, `[{"_id":"p1","content":"Alpine tent"}]`, outputs[0].Output.(string))
	assert.Contains(t, outputs[1].Output, "unknown function")
	assert.Contains(t, outputs[2].Output, "search_content")

	require.Len(t, searcher.queries, 1)
	assert.Equal(t, types.SearchQuery{Text: "tents", Limit: 2}, searcher.queries[0])
}

func TestSessionSendRunsToolsAndPrintsReply(t *testing.T) {
	api := &fakeAPI{
		runs: []openai.Run{
			{ID: "run_1", Status: openai.RunStatusQueued},
			{ID: "run_1", Status: openai.RunStatusRequiresAction, RequiredAction: &openai.RunRequiredAction{
				Type: openai.RequiredActionTypeSubmitToolOutputs,
				SubmitToolOutputs: &openai.SubmitToolOutputs{ToolCalls: []openai.ToolCall{
					{ID: "call_1", Type: openai.ToolTypeFunction, Function: openai.FunctionCall{Name: search.ToolName, Arguments: `{"search_content":"tents"}`}},
				}},
			}},
			{ID: "run_1", Status: openai.RunStatusInProgress},
			{ID: "run_1", Status: openai.RunStatusCompleted},
		},
		replies: openai.MessagesList{Messages: []openai.Message{
			{Role: "user", Content: []openai.MessageContent{textWithAnnotations("ignored")}},
			{Role: "assistant", Content: []openai.MessageContent{
				{Type: "image_file", ImageFile: &openai.ImageFile{FileID: "img-1"}},
				textWithAnnotations("Here are our best tents.", filePath("sandbox:/mnt/data/tents", "img-1")),
			}},
		}},
		files: map[string]string{"img-1": "PNGDATA"},
	}
	session, out := newTestSession(t, api, &fakeSearcher{}, "")

	require.NoError(t, session.Start(context.Background(), "be helpful"))
	assert.Equal(t, "asst_1", session.AgentID())
	assert.Equal(t, "thread_1", session.ThreadID())
	require.NotNil(t, api.assistantReq.Temperature)
	assert.InDelta(t, 0.1, *api.assistantReq.Temperature, 1e-6)
	require.Len(t, api.assistantReq.Tools, 1)

	require.NoError(t, session.Send(context.Background(), "show me tents"))

	require.Len(t, api.messages, 1)
	assert.Equal(t, "show me tents", api.messages[0].Content)
	require.Len(t, api.runRequests, 1)
	assert.Equal(t, 20480, api.runRequests[0].MaxPromptTokens)
	assert.Equal(t, 10240, api.runRequests[0].MaxCompletionTokens)
	assert.Equal(t, "be helpful", api.runRequests[0].Instructions)
	require.Len(t, api.submitted, 1)
	assert.Equal(t, "call_1", api.submitted[0].ToolOutputs[0].ToolCallID)

	assert.Contains(t, out.String(), "Created agent, ID: asst_1")
	assert.Contains(t, out.String(), "Here are our best tents.")
	assert.NotContains(t, out.String(), "ignored")

	saved, err := os.ReadFile(filepath.Join(session.config.FilesDir, "tents.img-1.png"))
	require.NoError(t, err)
	assert.Equal(t, "PNGDATA", string(saved))
}

func TestSessionSendFailedRun(t *testing.T) {
	api := &fakeAPI{runs: []openai.Run{
		{ID: "run_2", Status: openai.RunStatusFailed, LastError: &openai.RunLastError{Code: openai.RunErrorRateLimitExceeded, Message: "slow down"}},
	}}
	session, _ := newTestSession(t, api, &fakeSearcher{}, "")
	require.NoError(t, session.Start(context.Background(), "x"))

	err := session.Send(context.Background(), "hello")
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, openai.RunStatusFailed, runErr.Status)
	assert.Contains(t, err.Error(), "slow down")
}

func TestSessionSendTimeoutCancelsRun(t *testing.T) {
	api := &fakeAPI{runs: []openai.Run{{ID: "run_3", Status: openai.RunStatusInProgress}}}
	session, _ := newTestSession(t, api, &fakeSearcher{}, "")
	session.config.RunTimeout = 20 * time.Millisecond
	require.NoError(t, session.Start(context.Background(), "x"))

	err := session.Send(context.Background(), "hello")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, api.cancelled)
}

func TestSessionSendRequiresStart(t *testing.T) {
	session, _ := newTestSession(t, &fakeAPI{}, &fakeSearcher{}, "")
	require.Error(t, session.Send(context.Background(), "hello"))
}

func TestSessionLoop(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     Command
		wantRuns int
	}{
		{name: "save after query", input: "\n  \nshow tents\nSAVE\n", want: CommandSave, wantRuns: 1},
		{name: "exit", input: "Exit\n", want: CommandExit},
		{name: "end of input", input: "one\ntwo", want: CommandExit, wantRuns: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{runs: []openai.Run{{ID: "run", Status: openai.RunStatusCompleted}}}
			session, out := newTestSession(t, api, &fakeSearcher{}, tt.input)
			require.NoError(t, session.Start(context.Background(), "x"))

			prompts := 0
			got, err := session.Loop(context.Background(), func(context.Context) { prompts++ })
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, api.runRequests, tt.wantRuns)
			assert.Equal(t, tt.wantRuns, prompts)
			assert.Contains(t, out.String(), PromptLabel)
		})
	}
}

func TestSessionLoopReportsErrors(t *testing.T) {
	api := &fakeAPI{runs: []openai.Run{{ID: "run", Status: openai.RunStatusExpired}}}
	session, out := newTestSession(t, api, &fakeSearcher{}, "hello\nexit\n")
	require.NoError(t, session.Start(context.Background(), "x"))

	got, err := session.Loop(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, CommandExit, got)
	assert.Contains(t, out.String(), "An error occurred posting the message")
}

func TestSessionCleanup(t *testing.T) {
	api := &fakeAPI{}
	session, _ := newTestSession(t, api, &fakeSearcher{}, "")
	require.NoError(t, session.Start(context.Background(), "x"))

	require.NoError(t, session.Cleanup(context.Background()))
	assert.Equal(t, []string{"thread_1", "asst_1"}, api.deleted)

	api.deleteErr = errors.New("forbidden")
	require.ErrorContains(t, session.Cleanup(context.Background()), "asst_1")
}

func TestNewAPIValidation(t *testing.T) {
	cred := staticCredential{}
	_, err := NewAPI(context.Background(), &types.Config{ProjectEndpoint: "http://insecure.example.com"}, cred)
	require.Error(t, err)
	_, err = NewAPI(context.Background(), &types.Config{ProjectEndpoint: "https://acct.services.ai.azure.com/api/projects/sales"}, nil)
	require.Error(t, err)

	client, err := NewAPI(context.Background(), &types.Config{
		ProjectEndpoint:  "https://acct.services.ai.azure.com/api/projects/sales/",
		AgentsAPIVersion: "v1",
	}, cred)
	require.NoError(t, err)
	require.NotNil(t, client)
}
