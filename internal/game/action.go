package game

// Kind is the wire discriminator of an action.
type Kind string

const (
	KindJoin            Kind = "JOIN"
	KindUpdatePlayer    Kind = "UPDATE_PLAYER"
	KindRemovePlayer    Kind = "REMOVE_PLAYER"
	KindAddBot          Kind = "ADD_BOT"
	KindToggleTrollMode Kind = "TOGGLE_TROLL_MODE"
	KindToggleHPMode    Kind = "TOGGLE_HP_MODE"
	KindToggleRules     Kind = "TOGGLE_RULES"
	KindStartGame       Kind = "START_GAME"
	KindSubmitGm        Kind = "SUBMIT_GM"
	KindSubmitFake      Kind = "SUBMIT_FAKE"
	KindVote            Kind = "VOTE"
	KindAwardPoint      Kind = "AWARD_POINT"
	KindManageScore     Kind = "MANAGE_SCORE"
	KindRevealAnswer    Kind = "REVEAL_ANSWER"
	KindNextRound       Kind = "NEXT_ROUND"
	KindEndGame         Kind = "END_GAME"
	KindResetGame       Kind = "RESET_GAME"
	KindStartTimer      Kind = "START_TIMER"
	KindSetRoast        Kind = "SET_ROAST"
	KindSetFinalRoast   Kind = "SET_FINAL_ROAST"
	KindSkipPhase       Kind = "SKIP_PHASE"
	KindPing            Kind = "PING"
)

// Action is the closed set of session mutations. Only types in this file
// implement it.
type Action interface {
	Kind() Kind
	isAction()
}

// Join's payload is the joining player itself.
type Join struct {
	Player
}

type UpdatePlayer struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

type RemovePlayer struct {
	PlayerID string `json:"playerId"`
	Seed     uint64 `json:"seed,omitempty"`
}

type AddBot struct {
	BotID       string      `json:"botId"`
	Name        string      `json:"name"`
	Avatar      string      `json:"avatar"`
	Personality Personality `json:"personality"`
}

type ToggleTrollMode struct {
	Enable bool `json:"enable"`
}

type ToggleHPMode struct {
	Enable bool `json:"enable"`
}

type ToggleRules struct {
	Show bool `json:"show"`
}

type StartGame struct {
	Mode Mode `json:"mode"`
}

type SubmitGm struct {
	Question string `json:"question"`
	Correct  string `json:"correct"`
	Fake     string `json:"fake"`
	Category string `json:"category"`
}

type SubmitFake struct {
	PlayerID string `json:"playerId"`
	Text     string `json:"text"`
	AnswerID string `json:"answerId,omitempty"`
	Seed     uint64 `json:"seed,omitempty"`
}

type Vote struct {
	PlayerID string `json:"playerId"`
	AnswerID string `json:"answerId"`
}

type AwardPoint struct {
	PlayerID string `json:"playerId"`
}

type ManageScore struct {
	PlayerID string `json:"playerId"`
	Amount   int    `json:"amount"`
}

type RevealAnswer struct {
	AnswerID string `json:"answerId"`
}

type NextRound struct{}

type EndGame struct{}

type ResetGame struct{}

// StartTimer arms the input deadline. At is the host clock in unix ms.
type StartTimer struct {
	Duration int   `json:"duration"`
	At       int64 `json:"at,omitempty"`
}

type SetRoast struct {
	Roast
}

type SetFinalRoast struct {
	Text string `json:"text"`
}

// SkipPhase force-advances PLAYER_INPUT or VOTING with whatever has arrived.
type SkipPhase struct {
	Seed uint64 `json:"seed,omitempty"`
}

type Ping struct{}

// Unknown carries a tag this build does not understand. Apply ignores it.
type Unknown struct {
	Type string
}

func (Join) Kind() Kind            { return KindJoin }
func (UpdatePlayer) Kind() Kind    { return KindUpdatePlayer }
func (RemovePlayer) Kind() Kind    { return KindRemovePlayer }
func (AddBot) Kind() Kind          { return KindAddBot }
func (ToggleTrollMode) Kind() Kind { return KindToggleTrollMode }
func (ToggleHPMode) Kind() Kind    { return KindToggleHPMode }
func (ToggleRules) Kind() Kind     { return KindToggleRules }
func (StartGame) Kind() Kind       { return KindStartGame }
func (SubmitGm) Kind() Kind        { return KindSubmitGm }
func (SubmitFake) Kind() Kind      { return KindSubmitFake }
func (Vote) Kind() Kind            { return KindVote }
func (AwardPoint) Kind() Kind      { return KindAwardPoint }
func (ManageScore) Kind() Kind     { return KindManageScore }
func (RevealAnswer) Kind() Kind    { return KindRevealAnswer }
func (NextRound) Kind() Kind       { return KindNextRound }
func (EndGame) Kind() Kind         { return KindEndGame }
func (ResetGame) Kind() Kind       { return KindResetGame }
func (StartTimer) Kind() Kind      { return KindStartTimer }
func (SetRoast) Kind() Kind        { return KindSetRoast }
func (SetFinalRoast) Kind() Kind   { return KindSetFinalRoast }
func (SkipPhase) Kind() Kind       { return KindSkipPhase }
func (Ping) Kind() Kind            { return KindPing }
func (u Unknown) Kind() Kind       { return Kind(u.Type) }

func (Join) isAction()            {}
func (UpdatePlayer) isAction()    {}
func (RemovePlayer) isAction()    {}
func (AddBot) isAction()          {}
func (ToggleTrollMode) isAction() {}
func (ToggleHPMode) isAction()    {}
func (ToggleRules) isAction()     {}
func (StartGame) isAction()       {}
func (SubmitGm) isAction()        {}
func (SubmitFake) isAction()      {}
func (Vote) isAction()            {}
func (AwardPoint) isAction()      {}
func (ManageScore) isAction()     {}
func (RevealAnswer) isAction()    {}
func (NextRound) isAction()       {}
func (EndGame) isAction()         {}
func (ResetGame) isAction()       {}
func (StartTimer) isAction()      {}
func (SetRoast) isAction()        {}
func (SetFinalRoast) isAction()   {}
func (SkipPhase) isAction()       {}
func (Ping) isAction()            {}
func (Unknown) isAction()         {}
