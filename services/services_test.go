package services

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/tournament-bracket/brackets"
	"github.com/Dosada05/tournament-bracket/db"
	"github.com/Dosada05/tournament-bracket/models"
	"github.com/Dosada05/tournament-bracket/repositories"
	"github.com/Dosada05/tournament-bracket/storage"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.Connect(db.DriverSQLite, "file::memory:", time.Second)
	require.NoError(t, err, "Failed to connect to in-memory DB")
	require.NoError(t, db.Migrate(database), "Failed to apply migrations")

	t.Cleanup(func() { database.Close() })
	return database
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []brackets.WebSocketMessage
}

func (n *recordingNotifier) BroadcastToRoom(roomID string, message interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if msg, ok := message.(brackets.WebSocketMessage); ok {
		n.messages = append(n.messages, msg)
	}
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.messages))
	for _, m := range n.messages {
		out = append(out, m.Type)
	}
	return out
}

type memoryUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	uploads int
	fail    bool
}

func newMemoryUploader() *memoryUploader {
	return &memoryUploader{objects: make(map[string][]byte)}
}

func (u *memoryUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.fail {
		return nil, io.ErrClosedPipe
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, err
	}
	u.objects[key] = buf.Bytes()
	u.uploads++
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *memoryUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	return nil
}

func (u *memoryUploader) GetPublicURL(key string) string {
	return "https://results.example.com/" + key
}

func (u *memoryUploader) has(key string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.objects[key]
	return ok
}

type testEnv struct {
	db          *sqlx.DB
	tournaments TournamentService
	matches     MatchService
	notifier    *recordingNotifier
	uploader    *memoryUploader
	matchRepo   repositories.MatchRepository
}

func noShuffle(int, func(i, j int)) {}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := setupTestDB(t)

	tournamentRepo := repositories.NewTournamentRepository(database)
	participantRepo := repositories.NewParticipantRepository(database)
	matchRepo := repositories.NewMatchRepository(database)
	locks := NewTournamentLocks()
	notifier := &recordingNotifier{}
	uploader := newMemoryUploader()

	return &testEnv{
		db: database,
		tournaments: NewTournamentService(database, tournamentRepo, participantRepo, matchRepo,
			brackets.NewSingleEliminationGeneratorWith(noShuffle, nil), uploader, locks, notifier, nil),
		matches:   NewMatchService(database, tournamentRepo, participantRepo, matchRepo, locks, notifier, nil),
		notifier:  notifier,
		uploader:  uploader,
		matchRepo: matchRepo,
	}
}

// startedTournament creates a tournament with n participants named p0..pN-1 and starts it.
func (e *testEnv) startedTournament(t *testing.T, n int) (*models.Tournament, []*models.Participant, []*models.Match) {
	t.Helper()
	ctx := context.Background()

	tournament, err := e.tournaments.CreateTournament(ctx, CreateTournamentInput{Title: "Cup", MaxParticipants: 64})
	require.NoError(t, err)

	names := make([]string, n)
	for i := range names {
		names[i] = "p" + string(rune('a'+i))
	}
	participants, err := e.tournaments.AddParticipants(ctx, tournament.ID, names)
	require.NoError(t, err)

	started, matches, err := e.tournaments.StartTournament(ctx, tournament.ID)
	require.NoError(t, err)
	return started, participants, matches
}

func (e *testEnv) play(t *testing.T, tournamentID, matchID uuid.UUID, first, second int) []*models.Match {
	t.Helper()
	ctx := context.Background()
	_, err := e.matches.StartMatch(ctx, tournamentID, matchID)
	require.NoError(t, err)
	changed, err := e.matches.UpdateMatch(ctx, tournamentID, matchID, UpdateMatchInput{
		FirstScore: first, SecondScore: second, Finished: true,
	})
	require.NoError(t, err)
	return changed
}
