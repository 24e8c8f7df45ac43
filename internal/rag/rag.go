package rag

import (
	"context"
	"fmt"
	"strings"

	"medibot/internal/llm"
	"medibot/internal/store"
)

// Refusal is the exact text returned whenever the corpus holds no
// sufficient evidence. Callers and tests rely on it verbatim.
const Refusal = "I don't know based on the provided book."

const systemPrompt = `You are a medical-book question answering assistant.
Use ONLY the provided context.
If the answer is not in the context, say "I don't know based on the provided book."
Do not provide medical diagnosis.
Use a maximum of three sentences and keep the answer concise.`

// Embedder embeds the query text. Satisfied by embedder.OllamaEmbedder.
type Embedder interface {
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

// Searcher answers similarity queries. Satisfied by store.SQLiteStore.
type Searcher interface {
	Query(ctx context.Context, vector []float32, k int, namespace string) ([]store.SearchResult, error)
}

// Generator produces the answer text. Satisfied by llm.OllamaChat.
type Generator interface {
	Generate(ctx context.Context, messages []llm.Message) (string, error)
}

// RetrievalResult is one piece of retrieved evidence.
type RetrievalResult struct {
	Source string
	Page   int
	Text   string
	Score  float64
	Scored bool
}

// SourceRef is a (source, page) citation.
type SourceRef struct {
	Source string
	Page   int
}

// Answer is the outcome of one question. Grounded is false for the
// refusal path; that outcome is a successful result, not an error.
type Answer struct {
	Text     string
	Evidence []RetrievalResult
	Grounded bool
}

// Sources returns the deduplicated (source, page) pairs of the
// evidence, preserving retrieval order.
func (a Answer) Sources() []SourceRef {
	seen := make(map[SourceRef]bool, len(a.Evidence))
	var refs []SourceRef
	for _, e := range a.Evidence {
		ref := SourceRef{Source: e.Source, Page: e.Page}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs
}

// Pipeline wires retrieval, the confidence gate, and generation into
// the per-question answer path. It is stateless across questions and
// safe for concurrent use.
type Pipeline struct {
	emb       Embedder
	searcher  Searcher
	gen       Generator
	namespace string
	topK      int
	threshold float64
}

// New creates a Pipeline. topK and threshold are the defaults used by
// AnswerQuestion.
func New(emb Embedder, searcher Searcher, gen Generator, namespace string, topK int, threshold float64) *Pipeline {
	return &Pipeline{
		emb:       emb,
		searcher:  searcher,
		gen:       gen,
		namespace: namespace,
		topK:      topK,
		threshold: threshold,
	}
}

// RetrieveWithConfidence embeds the query, runs a top-k similarity
// search, and applies the confidence gate: the question is answerable
// only when some scored result reaches threshold (a score exactly equal
// to the threshold passes). Results without a usable score never
// satisfy the gate, so an all-unscored set fails closed. When the gate
// rejects, the returned results must not be passed to generation.
func (p *Pipeline) RetrieveWithConfidence(ctx context.Context, query string, k int, threshold float64) (bool, []RetrievalResult, error) {
	vec, err := p.emb.EmbedSingle(ctx, query)
	if err != nil {
		return false, nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := p.searcher.Query(ctx, vec, k, p.namespace)
	if err != nil {
		return false, nil, fmt.Errorf("similarity search: %w", err)
	}

	results := make([]RetrievalResult, 0, len(matches))
	answerable := false
	for _, m := range matches {
		results = append(results, RetrievalResult{
			Source: m.Metadata.Source,
			Page:   m.Metadata.Page,
			Text:   m.Metadata.Text,
			Score:  m.Score,
			Scored: m.Scored,
		})
		if m.Scored && m.Score >= threshold {
			answerable = true
		}
	}

	if !answerable {
		return false, nil, nil
	}
	return true, results, nil
}

// BuildContext concatenates the evidence into the context block fed to
// the model, in retrieval order.
func BuildContext(evidence []RetrievalResult) string {
	blocks := make([]string, len(evidence))
	for i, e := range evidence {
		blocks[i] = fmt.Sprintf("Source: %s | Page: %d\n%s", e.Source, e.Page, e.Text)
	}
	return strings.Join(blocks, "\n\n")
}

// Generate invokes the model once with the question and the evidence
// context. It must never be called with empty evidence; the gate's
// refusal path short-circuits generation entirely.
func (p *Pipeline) Generate(ctx context.Context, question string, evidence []RetrievalResult) (Answer, error) {
	if len(evidence) == 0 {
		return Answer{}, fmt.Errorf("generate called without evidence")
	}

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("Question: %s\n\nContext:\n%s", question, BuildContext(evidence))},
	}

	text, err := p.gen.Generate(ctx, messages)
	if err != nil {
		return Answer{}, fmt.Errorf("generation failed: %w", err)
	}

	return Answer{
		Text:     text,
		Evidence: evidence,
		Grounded: true,
	}, nil
}

// AnswerQuestion runs the full path for one question: retrieve, gate,
// and either the canned refusal or a single generation call. Retrieval
// and generation failures abort this question only.
func (p *Pipeline) AnswerQuestion(ctx context.Context, question string) (Answer, error) {
	answerable, results, err := p.RetrieveWithConfidence(ctx, question, p.topK, p.threshold)
	if err != nil {
		return Answer{}, err
	}
	if !answerable {
		return Answer{Text: Refusal, Grounded: false}, nil
	}
	return p.Generate(ctx, question, results)
}
