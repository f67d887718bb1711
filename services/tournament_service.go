package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/events"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/Dosada05/tournament-engine/storage"
)

// CreateTournamentInput carries the tournament settings. Zero best-of and
// schedule values fall back to defaults.
type CreateTournamentInput struct {
	Name        string                  `json:"name"`
	TeamSize    int                     `json:"team_size"`
	BracketType models.BracketType      `json:"bracket_type"`
	BestOf      models.BestOfConfig     `json:"best_of"`
	Schedule    models.ScheduleStrategy `json:"schedule"`
	StartDate   time.Time               `json:"start_date"`
}

// TournamentView is the full read model: settings plus the whole bracket
// tree and the registered parties.
type TournamentView struct {
	Tournament    *models.Tournament     `json:"tournament"`
	Registrations []*models.Registration `json:"registrations"`
	Participants  []*models.Participant  `json:"participants"`
	Stage         *models.Stage          `json:"stage,omitempty"`
}

// TournamentService drives the tournament lifecycle from draft to finish.
type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	GetFullView(ctx context.Context, id int) (*TournamentView, error)
	List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error)
	UpdateStatus(ctx context.Context, id int, next models.TournamentStatus) (*models.Tournament, error)
	RegenerateBracket(ctx context.Context, id int) (*models.Stage, error)
	UploadLogo(ctx context.Context, id int, contentType string, reader io.Reader) (*models.Tournament, error)
	// HandleBracketUpdated finishes the tournament once no unfinished match
	// remains.
	HandleBracketUpdated(ctx context.Context, update events.BracketUpdated) error
}

// TournamentScheduler is the slice of the scheduler the lifecycle needs.
type TournamentScheduler interface {
	InitialSchedule(ctx context.Context, tournament *models.Tournament) error
	CancelTournament(ctx context.Context, tournamentID int) error
}

type tournamentService struct {
	store         *repositories.Store
	engine        *brackets.Engine
	scheduler     TournamentScheduler
	registrations RegistrationService
	uploader      storage.FileUploader
	logger        *slog.Logger
}

func NewTournamentService(
	store *repositories.Store,
	engine *brackets.Engine,
	sched TournamentScheduler,
	registrations RegistrationService,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		store:         store,
		engine:        engine,
		scheduler:     sched,
		registrations: registrations,
		uploader:      uploader,
		logger:        logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidationFailed)
	}
	if input.TeamSize < 1 {
		return nil, fmt.Errorf("%w: team size must be positive", ErrValidationFailed)
	}
	switch input.BracketType {
	case models.BracketSingleElimination, models.BracketDoubleElimination:
	default:
		return nil, fmt.Errorf("%w: unknown bracket type %q", ErrValidationFailed, input.BracketType)
	}

	bestOf := input.BestOf
	if bestOf.Round == 0 {
		bestOf.Round = 1
	}
	if bestOf.Final == 0 {
		bestOf.Final = 3
	}
	if bestOf.GrandFinal == 0 {
		bestOf.GrandFinal = 5
	}
	for _, k := range []int{bestOf.Round, bestOf.Final, bestOf.GrandFinal} {
		if k < 1 || k%2 == 0 {
			return nil, fmt.Errorf("%w: best-of values must be odd and positive", ErrValidationFailed)
		}
	}
	schedule := input.Schedule
	if schedule.GameDurationSeconds == 0 {
		schedule.GameDurationSeconds = 3600
	}
	if schedule.GameBreakDurationSeconds == 0 {
		schedule.GameBreakDurationSeconds = 300
	}
	if schedule.GameDurationSeconds < 0 || schedule.GameBreakDurationSeconds < 0 {
		return nil, fmt.Errorf("%w: schedule durations must be positive", ErrValidationFailed)
	}

	tournament := &models.Tournament{
		Name:        input.Name,
		TeamSize:    input.TeamSize,
		BracketType: input.BracketType,
		BestOf:      bestOf,
		Schedule:    schedule,
		Status:      models.TournamentDraft,
		StartDate:   input.StartDate,
	}
	if err := s.store.Tournaments.Create(ctx, tournament); err != nil {
		return nil, mapRepositoryError(err)
	}
	s.logger.Info("tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("name", tournament.Name),
		slog.String("bracket_type", string(tournament.BracketType)),
	)
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.store.Tournaments.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	s.populateLogoURL(tournament)
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error) {
	tournaments, err := s.store.Tournaments.List(ctx, status)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	for _, t := range tournaments {
		s.populateLogoURL(t)
	}
	return tournaments, nil
}

// GetFullView assembles the tournament read model. The independent pieces
// load in parallel; the bracket tree is stitched together afterwards.
func (s *tournamentService) GetFullView(ctx context.Context, id int) (*TournamentView, error) {
	tournament, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &TournamentView{Tournament: tournament}

	var (
		stage   *models.Stage
		matches []*models.Match
		games   []*models.MatchGame
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		regs, err := s.store.Registrations.ListByTournament(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to fetch registrations: %w", err)
		}
		view.Registrations = regs
		return nil
	})
	g.Go(func() error {
		participants, err := s.store.Participants.ListByTournament(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to fetch participants: %w", err)
		}
		view.Participants = participants
		return nil
	})
	g.Go(func() error {
		var err error
		matches, err = s.store.Matches.ListByTournament(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to fetch matches: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		games, err = s.store.Games.ListByTournament(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to fetch games: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		stage, err = s.store.Stages.GetByTournament(gCtx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrStageNotFound) {
				return nil
			}
			return fmt.Errorf("failed to fetch stage: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if stage == nil {
		return view, nil
	}

	gamesByMatch := map[int][]models.MatchGame{}
	for _, game := range games {
		gamesByMatch[game.MatchID] = append(gamesByMatch[game.MatchID], *game)
	}
	matchesByRound := map[int][]models.Match{}
	for _, m := range matches {
		m.Games = gamesByMatch[m.ID]
		matchesByRound[m.RoundID] = append(matchesByRound[m.RoundID], *m)
	}

	groups, err := s.store.Groups.ListByStage(ctx, stage.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch groups: %w", err)
	}
	for _, group := range groups {
		rounds, err := s.store.Rounds.ListByGroup(ctx, group.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch rounds: %w", err)
		}
		for _, round := range rounds {
			round.Matches = matchesByRound[round.ID]
			group.Rounds = append(group.Rounds, *round)
		}
		stage.Groups = append(stage.Groups, *group)
	}
	view.Stage = stage
	return view, nil
}

// UpdateStatus applies a lifecycle transition and its side effects:
// opening the ready check, starting the bracket, or tearing timers down on
// cancel.
func (s *tournamentService) UpdateStatus(ctx context.Context, id int, next models.TournamentStatus) (*models.Tournament, error) {
	tournament, err := s.store.Tournaments.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if !isValidStatusTransition(tournament.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, tournament.Status, next)
	}
	if tournament.Status == next {
		return tournament, nil
	}

	switch next {
	case models.TournamentReadyCheck:
		if err := s.registrations.OpenReadyCheck(ctx, id); err != nil {
			return nil, err
		}
	case models.TournamentInProgress:
		if err := s.start(ctx, tournament); err != nil {
			return nil, err
		}
	case models.TournamentCanceled:
		if err := s.scheduler.CancelTournament(ctx, id); err != nil {
			return nil, err
		}
	}

	if err := s.store.Tournaments.UpdateStatus(ctx, nil, id, next); err != nil {
		return nil, mapRepositoryError(err)
	}
	tournament.Status = next
	s.logger.Info("tournament status changed",
		slog.Int("tournament_id", id),
		slog.String("status", string(next)),
	)
	return tournament, nil
}

// start closes the ready check, mints participants from the confirmed
// parties, generates the bracket and lays out the schedule. With too few
// confirmed parties the tournament falls back to registration.
func (s *tournamentService) start(ctx context.Context, tournament *models.Tournament) error {
	confirmed, err := s.registrations.CloseReadyCheck(ctx, tournament.ID)
	if err != nil {
		return err
	}
	if len(confirmed) < brackets.MinParticipants {
		if err := s.store.Tournaments.UpdateStatus(ctx, nil, tournament.ID, models.TournamentRegistration); err != nil {
			return mapRepositoryError(err)
		}
		tournament.Status = models.TournamentRegistration
		s.logger.Warn("tournament fell back to registration",
			slog.Int("tournament_id", tournament.ID),
			slog.Int("parties_confirmed", len(confirmed)),
		)
		return fmt.Errorf("%w: %d confirmed, need %d", ErrInsufficientParticipants, len(confirmed), brackets.MinParticipants)
	}

	participants := make([]*models.Participant, 0, len(confirmed))
	for _, reg := range confirmed {
		regID := reg.ID
		participants = append(participants, &models.Participant{
			TournamentID:   tournament.ID,
			RegistrationID: &regID,
			Name:           partyName(reg),
		})
	}
	err = s.store.Tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.store.Participants.CreateBatch(ctx, exec, participants)
	})
	if err != nil {
		return mapRepositoryError(err)
	}

	ids := make([]int, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}
	if _, err := s.engine.Generate(ctx, tournament, ids); err != nil {
		return err
	}
	return s.scheduler.InitialSchedule(ctx, tournament)
}

func partyName(reg *models.Registration) string {
	if len(reg.Players) > 0 {
		return reg.Players[0].SteamID
	}
	return fmt.Sprintf("Party %d", reg.ID)
}

func (s *tournamentService) RegenerateBracket(ctx context.Context, id int) (*models.Stage, error) {
	stage, err := s.engine.Regenerate(ctx, id)
	if err != nil {
		if errors.Is(err, brackets.ErrScoresAlreadyRecorded) {
			return nil, ErrBracketAlreadyScored
		}
		return nil, mapRepositoryError(err)
	}
	return stage, nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, id int, contentType string, reader io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: object storage is not configured", ErrValidationFailed)
	}
	tournament, err := s.store.Tournaments.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	key := fmt.Sprintf("tournaments/%d/logo", id)
	if _, err := s.uploader.Upload(ctx, key, contentType, reader); err != nil {
		return nil, fmt.Errorf("failed to upload tournament logo: %w", err)
	}
	if err := s.store.Tournaments.UpdateLogoKey(ctx, id, &key); err != nil {
		return nil, mapRepositoryError(err)
	}
	tournament.LogoKey = &key
	s.populateLogoURL(tournament)
	return tournament, nil
}

func (s *tournamentService) populateLogoURL(t *models.Tournament) {
	if t.LogoKey == nil || s.uploader == nil {
		return
	}
	url := s.uploader.GetPublicURL(*t.LogoKey)
	t.LogoURL = &url
}

// HandleBracketUpdated checks whether the bracket just played its last
// match. If so, completed matches are archived and the tournament
// finishes.
func (s *tournamentService) HandleBracketUpdated(ctx context.Context, update events.BracketUpdated) error {
	tournament, err := s.store.Tournaments.GetByID(ctx, update.TournamentID)
	if err != nil {
		return mapRepositoryError(err)
	}
	if tournament.Status != models.TournamentInProgress {
		return nil
	}
	unfinished, err := s.store.Matches.CountUnfinished(ctx, update.TournamentID)
	if err != nil {
		return mapRepositoryError(err)
	}
	if unfinished > 0 {
		return nil
	}

	matches, err := s.store.Matches.ListByTournament(ctx, update.TournamentID)
	if err != nil {
		return mapRepositoryError(err)
	}
	var champion *int
	err = s.store.Tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		for _, m := range matches {
			if m.WinnerNextMatchID == nil && m.Winner() != nil {
				champion = m.Winner()
			}
			if m.Status == models.MatchCompleted {
				m.Status = models.MatchArchived
				if err := s.store.Matches.Update(ctx, exec, m); err != nil {
					return err
				}
			}
		}
		return s.store.Tournaments.UpdateStatus(ctx, exec, update.TournamentID, models.TournamentFinished)
	})
	if err != nil {
		return mapRepositoryError(err)
	}

	s.logger.Info("tournament finished",
		slog.Int("tournament_id", update.TournamentID),
		slog.Int("champion_participant_id", derefInt(champion)),
	)
	return nil
}
