// Package reportctx holds the per-request mutable state threaded through the
// orchestrator, agent kernel, and search plugins: message history, the
// deduplicated plugin-result registry, token-usage tallies, intent, and the
// extracted recommendations. One instance is constructed per inbound chat
// request and discarded at the end of the stream; nothing here is shared
// across requests.
package reportctx

import (
	"strings"
	"sync"

	"reportability-engine/internal/chatmodel"
	"reportability-engine/internal/docresult"
)

// Intent classifies the user's turn, gating whether downstream knowledge and
// recommendation agents run at all.
type Intent string

const (
	IntentUnset         Intent = ""
	IntentReportability Intent = "reportability"
	IntentInvalid       Intent = "invalid"
)

// Recommendation is a single regulation recommendation produced by the
// Extraction agent. ConfidenceScore is preserved exactly as returned by the
// model — numeric (0-10) or categorical ("High"/"Medium"/"Low") both occur
// in practice, so it is carried as chatmodel.ConfidenceScore rather than
// coerced to one shape.
type Recommendation struct {
	RegulationName  string                    `json:"regulationName"`
	ConfidenceScore chatmodel.ConfidenceScore `json:"confidenceScore"`
	Reasoning       string                    `json:"reasoning"`
}

// TokenUsage is the per-agent token tally, summed across every streamed or
// non-streaming turn that agent performed during the request.
type TokenUsage struct {
	AgentName        string `json:"agentName"`
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
}

// Context is the per-request mutable state. Every method takes the mutex,
// so the Context is safe for concurrent use: the Concurrent orchestrator's
// two knowledge agents register and mark results from parallel goroutines,
// and a handler may render context while a goroutine is still finishing
// cleanup.
type Context struct {
	mu sync.Mutex

	messageHistory []chatmodel.ChatMessage

	resultOrder []string
	results     map[string]docresult.PluginResult

	intent           Intent
	userInputNeeded  bool
	recommendations  []Recommendation
	tokenUsageOrder  []string
	tokenUsage       map[string]*TokenUsage
	includeEval      bool
	allChunks        strings.Builder
}

// New constructs a Context for req, auto-populating message history from the
// inbound request in order, mirroring the original's chat_request transform.
func New(req chatmodel.ChatRequest, includeEvalContent bool) *Context {
	c := &Context{
		results:     make(map[string]docresult.PluginResult),
		tokenUsage:  make(map[string]*TokenUsage),
		includeEval: includeEvalContent,
	}
	for _, m := range req.Messages {
		c.messageHistory = append(c.messageHistory, m)
	}
	return c
}

// IncludeEvalContent reports whether the terminal ContextDelta should carry
// diagnostic fields (intent, token usage, recommendations, per-hit metadata).
func (c *Context) IncludeEvalContent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.includeEval
}

// AppendMessage appends a message to the durable history. Content routed to
// the user but flagged add_to_chat_history=false must never reach this.
func (c *Context) AppendMessage(msg chatmodel.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messageHistory = append(c.messageHistory, msg)
}

// MessageHistory returns a snapshot of the message history in insertion order.
func (c *Context) MessageHistory() []chatmodel.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chatmodel.ChatMessage, len(c.messageHistory))
	copy(out, c.messageHistory)
	return out
}

// HasResult reports whether a plugin result with id is already registered.
func (c *Context) HasResult(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.results[id]
	return ok
}

// RegisterResult inserts r if its id is unseen, enforcing the uniqueness
// invariant. Returns true when r was newly inserted; a plugin only returns
// and feeds to the LLM results for which this was true.
func (c *Context) RegisterResult(r docresult.PluginResult) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := r.Identity().ID
	if _, exists := c.results[id]; exists {
		return false
	}
	c.results[id] = r
	c.resultOrder = append(c.resultOrder, id)
	return true
}

// MarkCited sets the cited flag of the result identified by id. The flag
// only ever transitions false->true; re-marking an already-cited result is a
// no-op, never a reset.
func (c *Context) MarkCited(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.results[id]; ok {
		r.SetCited(true)
	}
}

// MarkAllCited marks every currently registered result as cited, used by the
// Single orchestrator: one agent saw every result it retrieved this turn.
func (c *Context) MarkAllCited() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.resultOrder {
		c.results[id].SetCited(true)
	}
}

// Results returns every registered plugin result in insertion order.
func (c *Context) Results() []docresult.PluginResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]docresult.PluginResult, 0, len(c.resultOrder))
	for _, id := range c.resultOrder {
		out = append(out, c.results[id])
	}
	return out
}

// Result looks up a single registered plugin result by id.
func (c *Context) Result(id string) (docresult.PluginResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.results[id]
	return r, ok
}

// SetIntent records the classified intent for the request.
func (c *Context) SetIntent(i Intent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intent = i
}

// Intent returns the currently classified intent.
func (c *Context) Intent() Intent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intent
}

// SetUserInputNeeded flags that the orchestrator should stop and await
// further user input before continuing.
func (c *Context) SetUserInputNeeded(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userInputNeeded = v
}

// UserInputNeeded reports the current value of the flag.
func (c *Context) UserInputNeeded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userInputNeeded
}

// AppendRecommendations appends Extraction's parsed recommendations.
func (c *Context) AppendRecommendations(recs []Recommendation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recommendations = append(c.recommendations, recs...)
}

// Recommendations returns the recommendations accumulated so far.
func (c *Context) Recommendations() []Recommendation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Recommendation, len(c.recommendations))
	copy(out, c.recommendations)
	return out
}

// AppendTokenUsage adds one turn's usage to the running per-agent total.
// Every streamed or non-streaming terminal event carrying usage data must
// call this exactly once.
func (c *Context) AppendTokenUsage(agentName string, promptTokens, completionTokens int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.tokenUsage[agentName]
	if !ok {
		u = &TokenUsage{AgentName: agentName}
		c.tokenUsage[agentName] = u
		c.tokenUsageOrder = append(c.tokenUsageOrder, agentName)
	}
	u.PromptTokens += promptTokens
	u.CompletionTokens += completionTokens
}

// TokenUsage returns the aggregated per-agent token totals, in the order
// each agent name was first seen.
func (c *Context) TokenUsage() []TokenUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TokenUsage, 0, len(c.tokenUsageOrder))
	for _, name := range c.tokenUsageOrder {
		out = append(out, *c.tokenUsage[name])
	}
	return out
}

// AppendChunk records a fragment of generated content to the diagnostic
// all-chunks log, regardless of its visibility or history flags.
func (c *Context) AppendChunk(s string) {
	if s == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allChunks.WriteString(s)
}

// AllChunks returns the concatenation of every content fragment produced
// during the request, for logging.
func (c *Context) AllChunks() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allChunks.String()
}
