package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/juristcu/juristcu-api/internal/core/domain"
	"github.com/juristcu/juristcu-api/internal/core/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	return ctx.Err()
}

type completionCall struct {
	provider   domain.ProviderID
	credential string
}

// scriptedProviders records every completion call and answers through handler.
type scriptedProviders struct {
	calls   []completionCall
	handler func(provider domain.ProviderID, req ports.CompletionRequest) (string, error)
}

func (s *scriptedProviders) clients() map[domain.ProviderID]ports.CompletionClient {
	out := make(map[domain.ProviderID]ports.CompletionClient, len(domain.ProviderChain))
	for _, p := range domain.ProviderChain {
		out[p] = scriptedClient{provider: p, parent: s}
	}
	return out
}

type scriptedClient struct {
	provider domain.ProviderID
	parent   *scriptedProviders
}

func (c scriptedClient) Complete(_ context.Context, req ports.CompletionRequest) (string, error) {
	c.parent.calls = append(c.parent.calls, completionCall{provider: c.provider, credential: req.Credential})
	return c.parent.handler(c.provider, req)
}

func quotaError(provider domain.ProviderID) error {
	return &domain.ProviderError{Provider: provider, StatusCode: 429, Message: "quota exceeded"}
}

func verdictJSON(atende bool, justificativa string) string {
	return fmt.Sprintf(`{"atende": %t, "justificativa": %q}`, atende, justificativa)
}

// answerByCriterion answers yes for the criteria listed under each document number.
func answerByCriterion(met map[string][]string) func(domain.ProviderID, ports.CompletionRequest) (string, error) {
	return func(_ domain.ProviderID, req ports.CompletionRequest) (string, error) {
		for numero, criteria := range met {
			if !strings.Contains(req.Prompt, "(Número "+numero+"/") {
				continue
			}
			for _, c := range criteria {
				if strings.Contains(req.Prompt, "CRITÉRIO A AVALIAR:\n"+c+"\n") {
					return verdictJSON(true, "atende "+c), nil
				}
			}
		}
		return verdictJSON(false, "não atende"), nil
	}
}

type recordingObserver struct {
	calls         []string
	failovers     [][2]domain.ProviderID
	parseFailures int
	finished      *domain.ScanOutcome
}

func (o *recordingObserver) ProviderCall(provider domain.ProviderID, err error, kind domain.ErrorKind) {
	if err != nil {
		o.calls = append(o.calls, string(provider)+":"+string(kind))
		return
	}
	o.calls = append(o.calls, string(provider)+":ok")
}

func (o *recordingObserver) ProviderFailover(from, to domain.ProviderID) {
	o.failovers = append(o.failovers, [2]domain.ProviderID{from, to})
}

func (o *recordingObserver) ParseFailure(domain.ProviderID) {
	o.parseFailures++
}

func (o *recordingObserver) ScanFinished(outcome *domain.ScanOutcome) {
	o.finished = outcome
}

func testTaxonomy() domain.Taxonomy {
	return domain.Taxonomy{Categories: []domain.Category{
		{
			Name: "Licitações",
			Subcategories: []domain.Subcategory{
				{Name: "Cinco", Criteria: []string{"A1", "A2", "A3", "A4", "A5"}},
				{Name: "Dois", Criteria: []string{"B1", "B2"}},
			},
		},
	}}
}

func testDocs(numeros ...string) []domain.Acordao {
	docs := make([]domain.Acordao, 0, len(numeros))
	for i, n := range numeros {
		docs = append(docs, domain.Acordao{
			ID:       int64(i + 1),
			Numero:   n,
			Ano:      2024,
			Titulo:   "Acórdão " + n,
			Sumario:  "Sumário " + n,
			TextoPDF: "Texto integral do acórdão " + n,
		})
	}
	return docs
}

type fakeDocumentStore struct {
	docs      []domain.Acordao
	stats     domain.CorpusStats
	err       error
	listCalls int
	lastLimit int
}

func (s *fakeDocumentStore) ListProcessable(_ context.Context, limit int) ([]domain.Acordao, error) {
	s.listCalls++
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	if limit > 0 && len(s.docs) > limit {
		return s.docs[:limit], nil
	}
	return s.docs, nil
}

func (s *fakeDocumentStore) Counts(context.Context) (domain.CorpusStats, error) {
	if s.err != nil {
		return domain.CorpusStats{}, s.err
	}
	return s.stats, nil
}

type fakePublisher struct {
	records []domain.ScanRecord
	err     error
}

func (p *fakePublisher) PublishScanRecorded(_ context.Context, record domain.ScanRecord) error {
	p.records = append(p.records, record)
	return p.err
}

type fakeScanRunStore struct {
	saved []domain.ScanRecord
	err   error
}

func (s *fakeScanRunStore) SaveScanRun(_ context.Context, record domain.ScanRecord) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, record)
	return nil
}
