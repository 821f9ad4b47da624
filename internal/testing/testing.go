// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ecwilsonaz/plexsage/internal/services"
)

// MockMediaSource is a configurable test double for [services.MediaSource].
//
// The zero value serves an empty library with identity "mock-server";
// override the function fields to inject behavior.
type MockMediaSource struct {
	IdentityFunc   func(ctx context.Context) (string, error)
	TotalCountFunc func(ctx context.Context) (int, error)
	FetchBatchFunc func(ctx context.Context, offset, size int) ([]services.RawTrack, error)

	FetchCalls int
}

func (m *MockMediaSource) Identity(ctx context.Context) (string, error) {
	if m.IdentityFunc != nil {
		return m.IdentityFunc(ctx)
	}
	return "mock-server", nil
}

func (m *MockMediaSource) TotalCount(ctx context.Context) (int, error) {
	if m.TotalCountFunc != nil {
		return m.TotalCountFunc(ctx)
	}
	return 0, nil
}

func (m *MockMediaSource) FetchBatch(ctx context.Context, offset, size int) ([]services.RawTrack, error) {
	m.FetchCalls++
	if m.FetchBatchFunc != nil {
		return m.FetchBatchFunc(ctx, offset, size)
	}
	return nil, nil
}

func (m *MockMediaSource) Name() string { return "mock" }

// NewLibrarySource returns a MockMediaSource serving total generated tracks.
func NewLibrarySource(identity string, total int) *MockMediaSource {
	return &MockMediaSource{
		IdentityFunc: func(ctx context.Context) (string, error) {
			return identity, nil
		},
		TotalCountFunc: func(ctx context.Context) (int, error) {
			return total, nil
		},
		FetchBatchFunc: func(ctx context.Context, offset, size int) ([]services.RawTrack, error) {
			var batch []services.RawTrack
			for i := offset; i < offset+size && i < total; i++ {
				batch = append(batch, GeneratedTrack(i))
			}
			return batch, nil
		},
	}
}

// GeneratedTrack returns a deterministic raw track for index i.
func GeneratedTrack(i int) services.RawTrack {
	year := 1960 + i%60
	rating := i % 11
	return services.RawTrack{
		RatingKey:  fmt.Sprintf("%d", i),
		Title:      fmt.Sprintf("Track %d", i),
		Artist:     fmt.Sprintf("Artist %d", i%100),
		Album:      fmt.Sprintf("Album %d", i%200),
		DurationMS: 180000,
		Year:       &year,
		Genres:     []string{"Rock"},
		UserRating: &rating,
	}
}

// MockLLM is a configurable test double for [services.LLMGateway].
type MockLLM struct {
	CompleteFunc func(ctx context.Context, system, prompt string) (*services.LLMResponse, error)
	ModelName    string

	Prompts []string
}

func (m *MockLLM) Complete(ctx context.Context, system, prompt string) (*services.LLMResponse, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, system, prompt)
	}
	return &services.LLMResponse{Content: "[]", Model: m.Model()}, nil
}

func (m *MockLLM) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}
