package judge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriexam/proctor-backend/internal/model"
)

// fakeSandbox serves the sandbox HTTP API with a per-stdin verdict table
// and counts requests.
type fakeSandbox struct {
	t        *testing.T
	outputs  map[string]ExecResponse
	requests atomic.Int64
}

func (f *fakeSandbox) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)

		require.Equal(f.t, http.MethodPost, r.Method)
		require.Equal(f.t, "/execute", r.URL.Path)

		var req ExecRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))

		resp, ok := f.outputs[req.Stdin]
		if !ok {
			resp = ExecResponse{Success: true, Output: ""}
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(f.t, json.NewEncoder(w).Encode(resp))
	}
}

func sumSpec() *model.CodingSpec {
	return &model.CodingSpec{
		Language: "python",
		TestCases: []model.TestCase{
			{ID: uuid.New(), Input: "1 2", ExpectedOutput: "3"},
			{ID: uuid.New(), Input: "5 5", ExpectedOutput: "10", IsHidden: true},
			{ID: uuid.New(), Input: "0 0", ExpectedOutput: "0"},
		},
	}
}

func TestHarness_AllCasesJudgedInOrder(t *testing.T) {
	sandbox := &fakeSandbox{t: t, outputs: map[string]ExecResponse{
		"1 2": {Success: true, Output: "3", ExecutionTimeMs: 12},
		"5 5": {Success: true, Output: "10", ExecutionTimeMs: 9},
		"0 0": {Success: true, Output: "1"},
	}}
	srv := httptest.NewServer(sandbox.handler())
	defer srv.Close()

	h := NewHarness(NewHTTPClient(srv.URL, 5*time.Second, zerolog.Nop()), zerolog.Nop())
	spec := sumSpec()

	sub, err := h.Run(context.Background(), spec, "print(sum(map(int, input().split())))", "python")
	require.NoError(t, err)

	assert.Equal(t, int64(3), sandbox.requests.Load())
	require.Len(t, sub.Results, 3)

	// Hidden cases are judged like any other.
	assert.True(t, sub.Results[0].Passed)
	assert.True(t, sub.Results[1].Passed)
	assert.False(t, sub.Results[2].Passed)
	assert.Equal(t, "1", sub.Results[2].ActualOutput)

	for i := range spec.TestCases {
		assert.Equal(t, spec.TestCases[i].ID, sub.Results[i].TestCaseID)
	}

	assert.Equal(t, int64(12), sub.Results[0].ExecutionTimeMs)
	assert.Equal(t, 2, sub.PassedCount())
	assert.False(t, sub.AllPassed())
}

func TestHarness_TrailingWhitespaceForgiven(t *testing.T) {
	sandbox := &fakeSandbox{t: t, outputs: map[string]ExecResponse{
		"1 2": {Success: true, Output: "3\n"},
		"5 5": {Success: true, Output: "  10  \n"},
		"0 0": {Success: true, Output: "0"},
	}}
	srv := httptest.NewServer(sandbox.handler())
	defer srv.Close()

	h := NewHarness(NewHTTPClient(srv.URL, 5*time.Second, zerolog.Nop()), zerolog.Nop())

	sub, err := h.Run(context.Background(), sumSpec(), "code", "python")
	require.NoError(t, err)
	assert.True(t, sub.AllPassed())
}

func TestHarness_RuntimeErrorFailsCase(t *testing.T) {
	sandbox := &fakeSandbox{t: t, outputs: map[string]ExecResponse{
		"1 2": {Success: false, Output: "", Error: "NameError: name 'x' is not defined"},
		"5 5": {Success: true, Output: "10"},
		"0 0": {Success: true, Output: "0"},
	}}
	srv := httptest.NewServer(sandbox.handler())
	defer srv.Close()

	h := NewHarness(NewHTTPClient(srv.URL, 5*time.Second, zerolog.Nop()), zerolog.Nop())

	sub, err := h.Run(context.Background(), sumSpec(), "code", "python")
	require.NoError(t, err)

	assert.False(t, sub.Results[0].Passed)
	assert.True(t, sub.Results[1].Passed)
	assert.Equal(t, 2, sub.PassedCount())
}

func TestHarness_SandboxDownAbsorbedAsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // every request now fails at the transport level

	h := NewHarness(NewHTTPClient(srv.URL, time.Second, zerolog.Nop()), zerolog.Nop())
	spec := sumSpec()

	sub, err := h.Run(context.Background(), spec, "code", "python")
	require.NoError(t, err)
	require.Len(t, sub.Results, len(spec.TestCases))

	for _, res := range sub.Results {
		assert.False(t, res.Passed)
		assert.Equal(t, "", res.ActualOutput)
		assert.NotEmpty(t, res.ExpectedOutput)
	}
	assert.False(t, sub.AllPassed())
}

func TestHarness_LanguageMismatchSkipsSandbox(t *testing.T) {
	sandbox := &fakeSandbox{t: t}
	srv := httptest.NewServer(sandbox.handler())
	defer srv.Close()

	h := NewHarness(NewHTTPClient(srv.URL, 5*time.Second, zerolog.Nop()), zerolog.Nop())

	_, err := h.Run(context.Background(), sumSpec(), "console.log('hi')", "python")
	require.Error(t, err)

	var mismatch *LanguageMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "python", mismatch.Declared)
	assert.Equal(t, "console.log", mismatch.Marker)

	assert.Equal(t, int64(0), sandbox.requests.Load())
}

func TestHTTPClient_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, time.Second, zerolog.Nop())
	_, err := client.Execute(context.Background(), ExecRequest{Code: "x", Language: "python"})
	assert.ErrorIs(t, err, ErrSandboxUnavailable)
}

func TestCheckLanguage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		language string
		wantErr  bool
	}{
		{"python looks like python", "print('hello')", "python", false},
		{"javascript in python", "console.log('hello')", "python", true},
		{"java in python", "System.out.println(1);", "python", true},
		{"python in javascript", "def __init__(self):", "javascript", true},
		{"go in java", "func main() {}", "java", true},
		{"case insensitive declared language", "console.log(1)", "Python", true},
		{"unknown language always passes", "whatever <*> code", "cobol", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckLanguage(tt.code, tt.language)
			if tt.wantErr {
				var mismatch *LanguageMismatchError
				assert.ErrorAs(t, err, &mismatch)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
