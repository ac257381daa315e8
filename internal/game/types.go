package game

type Phase string

const (
	PhaseLobby            Phase = "LOBBY"
	PhaseGMInput          Phase = "GM_INPUT"
	PhasePlayerInput      Phase = "PLAYER_INPUT"
	PhaseVoting           Phase = "VOTING"
	PhaseResolution       Phase = "RESOLUTION"
	PhaseFinalLeaderboard Phase = "FINAL_LEADERBOARD"
)

// InRound reports whether a round is in progress.
func (p Phase) InRound() bool {
	return p != PhaseLobby && p != PhaseFinalLeaderboard
}

type Mode string

const (
	ModeClassic Mode = "classic"
	ModeHost    Mode = "host"
	ModeAI      Mode = "ai"
)

type Personality string

const (
	PersonalityBeginner Personality = "beginner"
	PersonalityPro      Personality = "pro"
	PersonalityTroll    Personality = "troll"
)

// Synthetic identities that never appear in Players (except the heckler).
const (
	AIGameMasterID = "AI_GM_HOST"
	HecklerID      = "TROLL_TORBEN_SPECTATOR"

	AuthorGame = "GAME"
	AuthorAI   = "AI"

	CorrectAnswerID = "correct"
	GMFakeAnswerID  = "ai-fake"
)

type Player struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Avatar         string      `json:"avatar"`
	Score          int         `json:"score"`
	IsHost         bool        `json:"isHost,omitempty"`
	IsBot          bool        `json:"isBot,omitempty"`
	BotPersonality Personality `json:"botPersonality,omitempty"`
	IsHeckler      bool        `json:"isHeckler,omitempty"`
	JoinOrder      int         `json:"joinOrder"`
}

// Human is a player that can hold host authority.
func (p Player) Human() bool { return !p.IsBot && !p.IsHeckler }

type Answer struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	AuthorID  string `json:"authorId"`
	IsCorrect bool   `json:"isCorrect"`
}

type RoundHistory struct {
	Question          string            `json:"question"`
	CorrectAnswerText string            `json:"correctAnswerText"`
	Answers           []Answer          `json:"answers"`
	Votes             map[string]string `json:"votes"`
	RoastTargetID     string            `json:"roastTargetId,omitempty"`
}

type Roast struct {
	TargetName string `json:"targetName"`
	BotName    string `json:"botName"`
	Text       string `json:"text"`
	AnswerID   string `json:"answerId"`
	TargetID   string `json:"targetId,omitempty"`
}

type Session struct {
	Players           []Player          `json:"players"`
	CreatedBy         string            `json:"createdBy,omitempty"`
	NextJoinOrder     int               `json:"nextJoinOrder"`
	GameMasterID      string            `json:"gameMasterId,omitempty"`
	Phase             Phase             `json:"phase"`
	CurrentRound      int               `json:"currentRound"`
	Question          string            `json:"question"`
	CorrectAnswerText string            `json:"correctAnswerText"`
	GMFakeAnswer      string            `json:"gmFakeAnswer"`
	Category          string            `json:"category"`
	ParticipantIDs    []string          `json:"participantIds"`
	SubmittedAnswers  []Answer          `json:"submittedAnswers"`
	Votes             map[string]string `json:"votes"`
	RevealedAnswerIDs []string          `json:"revealedAnswerIds"`
	AwardedBonusIDs   []string          `json:"awardedBonusIds"`
	History           []RoundHistory    `json:"history"`
	TimerEndTime      int64             `json:"timerEndTime,omitempty"` // unix ms
	TimerDuration     int               `json:"timerDuration,omitempty"`
	GameMode          Mode              `json:"gameMode"`
	IsHarryPotterMode bool              `json:"isHarryPotterMode"`
	ShowRules         bool              `json:"showRules"`
	RoastData         *Roast            `json:"roastData,omitempty"`
	FinalRoast        string            `json:"finalRoast,omitempty"`
}
