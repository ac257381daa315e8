package content

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/DoyleJ11/bluffparty/internal/game"
	"github.com/valyala/fasthttp"
)

const DefaultTimeout = 15 * time.Second

// Remote asks a text-generation endpoint for content. The endpoint takes
// {"prompt": "..."} and answers {"text": "..."}; the text is expected to
// contain JSON, possibly wrapped in markdown fences.
type Remote struct {
	url     string
	client  *fasthttp.Client
	timeout time.Duration
}

func NewRemote(url string, client *fasthttp.Client, timeout time.Duration) *Remote {
	if client == nil {
		client = &fasthttp.Client{Name: "bluffparty"}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Remote{url: url, client: client, timeout: timeout}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Text string `json:"text"`
}

func (r *Remote) generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	timeout := r.timeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(dl))
	}

	body, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := r.client.DoTimeout(req, resp, timeout); err != nil {
		return "", fmt.Errorf("content request: %w", err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return "", fmt.Errorf("content request: status %d", code)
	}
	var out generateResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("content response: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}

func (r *Remote) GenerateRoundContent(ctx context.Context, req RoundRequest) (RoundContent, error) {
	cat := req.Category
	if _, ok := pools[cat]; !ok {
		cat = categories[rand.IntN(len(categories))]
	}
	prompt := fmt.Sprintf("Bluffing quiz, category %s, style %s. Invent an obscure question and its TRUE answer. "+
		"The answer must be very short (max 8 words) with no trailing period. "+
		`JSON: {"question": "...", "correctAnswer": "..."}`, cat, personalityOrPro(req.Personality))
	switch {
	case req.Personality == game.PersonalityTroll && req.HarryPotter:
		prompt = "You are a playful troll in the Harry Potter universe. Invent a short, absurd question about a " +
			"completely made-up magical thing and a funny answer that sounds plausible. Max 8 words, no trailing period. " +
			`JSON: {"question": "...", "correctAnswer": "..."}`
	case req.Personality == game.PersonalityTroll:
		prompt = "You are a playful troll quiz master. Invent a short, absurd nonsense question and a funny answer " +
			"that sounds like a real fact. Max 8 words, no trailing period. " +
			`JSON: {"question": "...", "correctAnswer": "..."}`
	case req.HarryPotter:
		prompt = "Bluffing quiz set in the Harry Potter universe. Invent a question about an obscure spell, creature " +
			"or object and its TRUE answer. Max 8 words, no trailing period. " +
			`JSON: {"question": "...", "correctAnswer": "..."}`
	}

	text, err := r.generate(ctx, prompt)
	if err != nil {
		return RoundContent{}, err
	}
	var data struct {
		Question      string `json:"question"`
		CorrectAnswer string `json:"correctAnswer"`
	}
	if err := ExtractJSON(text, &data); err != nil {
		return RoundContent{}, err
	}

	switch {
	case req.HarryPotter:
		cat = CategoryHarryPotter
	case req.Personality == game.PersonalityTroll:
		cat = CategoryNonsense
	}
	c := RoundContent{Question: data.Question, Correct: game.CleanAnswer(data.CorrectAnswer), Category: cat}
	return c, validRound(c)
}

// GenerateBotAnswers asks once per personality group, concurrently.
func (r *Remote) GenerateBotAnswers(ctx context.Context, bots []game.Player, question string, hp bool) (map[string]string, error) {
	groups := map[game.Personality][]game.Player{}
	for _, b := range bots {
		p := personalityOrPro(b.BotPersonality)
		groups[p] = append(groups[p], b)
	}
	prefix := "General knowledge quiz."
	if hp {
		prefix = "Harry Potter universe quiz."
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		out   = make(map[string]string, len(bots))
		first error
	)
	for personality, members := range groups {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prompt := fmt.Sprintf("%s Question: %q. Invent %d %s for different players. No trailing periods. JSON array of strings.",
				prefix, question, len(members), lieStyle(personality))
			answers, err := r.lies(ctx, prompt)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if first == nil {
					first = err
				}
				return
			}
			for i, b := range members {
				if i < len(answers) && game.CleanAnswer(answers[i]) != "" {
					out[b.ID] = game.CleanAnswer(answers[i])
				}
			}
		}()
	}
	wg.Wait()

	if len(out) == 0 && first != nil {
		return nil, first
	}
	return out, nil
}

func (r *Remote) lies(ctx context.Context, prompt string) ([]string, error) {
	text, err := r.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var answers []string
	if err := ExtractJSON(text, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

func (r *Remote) GenerateRoast(ctx context.Context, req RoastRequest) (string, error) {
	prompt := fmt.Sprintf(`You are "Troll Torben", a cynical spectator at a quiz. Question: %q. `+
		`Player %q actually believed the answer was %q. Roast them in 2-3 sentences, focusing on how absurd that answer is.`,
		req.Question, req.TargetName, req.AnswerText)
	if req.Final {
		prompt = fmt.Sprintf(`You are "Troll Torben". The game is over. The loser is %s with only %d points. `+
			"Roast them mercilessly for last place in 2-3 short, cynical sentences.", req.TargetName, req.Score)
	}
	text, err := r.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty roast", ErrInvalidContent)
	}
	return text, nil
}

func personalityOrPro(p game.Personality) game.Personality {
	if slices.Contains([]game.Personality{game.PersonalityBeginner, game.PersonalityPro, game.PersonalityTroll}, p) {
		return p
	}
	return game.PersonalityPro
}

func lieStyle(p game.Personality) string {
	switch p {
	case game.PersonalityTroll:
		return "funny, absurd nonsense answers that still read like answers (max 8 words)"
	case game.PersonalityBeginner:
		return "simple, clumsy lies that are easy to see through (max 6 words)"
	default:
		return "completely believable, encyclopedia-style lies (max 10 words)"
	}
}

// ExtractJSON decodes the first JSON value in text, tolerating markdown
// fences and chatter around it.
func ExtractJSON(text string, v any) error {
	clean := strings.TrimSpace(strings.NewReplacer("```json", "", "```", "").Replace(text))
	if err := json.Unmarshal([]byte(clean), v); err == nil {
		return nil
	}
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start, end := strings.Index(text, pair[0]), strings.LastIndex(text, pair[1])
		if start < 0 || end <= start {
			continue
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), v); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: no JSON in response", ErrInvalidContent)
}

var _ Producer = (*Remote)(nil)
