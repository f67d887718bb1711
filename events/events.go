package events

// Topics carried by the engine bus. "engine.*" topics are produced by this
// service; "game.*" topics arrive from the external game provider.
const (
	TopicGameReady      = "engine.game.ready"
	TopicBracketUpdated = "engine.bracket.updated"

	TopicGameResult     = "game.result"
	TopicMatchFailed    = "game.match.failed"
	TopicMatchCancelled = "game.match.cancelled"
)

// Side names used by the external provider.
const (
	SideRadiant = "radiant"
	SideDire    = "dire"
)

// GameReady announces a dispatched game: a lobby should be created for it
// under ExternalMatchID, with the given steam ids on each side.
type GameReady struct {
	TournamentID    int      `json:"tournament_id"`
	MatchID         int      `json:"match_id"`
	GameID          int      `json:"game_id"`
	ExternalMatchID string   `json:"external_match_id"`
	BestOf          int      `json:"best_of"`
	GameNumber      int      `json:"game_number"`
	RadiantSteamIDs []string `json:"radiant_steam_ids"`
	DireSteamIDs    []string `json:"dire_steam_ids"`
}

// GameResult reports a finished game. WinningSide is SideRadiant or
// SideDire.
type GameResult struct {
	ExternalMatchID string `json:"external_match_id"`
	WinningSide     string `json:"winning_side"`
}

// MatchFailed reports a game that could not start, with the players at
// fault. An empty FailedSteamIDs list means the failure is attributable to
// neither side.
type MatchFailed struct {
	ExternalMatchID string   `json:"external_match_id"`
	Reason          string   `json:"reason"`
	FailedSteamIDs  []string `json:"failed_steam_ids"`
}

// MatchCancelled reports a game the provider abandoned without a result.
// The game returns to the dispatch pool.
type MatchCancelled struct {
	ExternalMatchID string `json:"external_match_id"`
	Reason          string `json:"reason"`
}

// BracketUpdated notifies listeners (websocket hub, finish detector) that
// match or game state changed.
type BracketUpdated struct {
	TournamentID int  `json:"tournament_id"`
	MatchID      int  `json:"match_id"`
	GameID       *int `json:"game_id,omitempty"`
}
