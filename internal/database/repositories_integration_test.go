package database_test // Используем _test пакет для изоляции

import (
	"context"
	"testing"
	"time"

	"skazka-server/internal/database"
	"skazka-server/internal/interfaces"
	"skazka-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// RepositoriesSuite гоняет репозитории против настоящего PostgreSQL
// в контейнере, с реальными миграциями и ограничениями схемы.
type RepositoriesSuite struct {
	suite.Suite
	ctx          context.Context
	pgContainer  *postgres.PostgresContainer
	pgPool       *pgxpool.Pool
	txManager    interfaces.TxManager
	userRepo     interfaces.UserRepository
	storyRepo    interfaces.StoryRepository
	likeRepo     interfaces.LikeRepository
	taxonomyRepo interfaces.TaxonomyRepository
	logger       *zap.Logger
}

func (s *RepositoriesSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.logger, err = zap.NewDevelopment()
	require.NoError(s.T(), err, "Failed to create logger for tests")

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")

	pgConnStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get postgres connection string")

	s.pgPool, err = pgxpool.New(s.ctx, pgConnStr)
	require.NoError(s.T(), err, "Failed to connect to test postgres")

	// Применяем встроенные миграции приложения
	require.NoError(s.T(), database.ApplyMigrations(s.ctx, s.pgPool), "Failed to run migrations")

	s.txManager = database.NewTransactionHelper(s.pgPool, s.logger)
	s.userRepo = database.NewPgUserRepository(s.logger)
	s.storyRepo = database.NewPgStoryRepository(s.logger)
	s.likeRepo = database.NewPgLikeRepository(s.logger)
	s.taxonomyRepo = database.NewPgTaxonomyRepository(s.logger)
}

func (s *RepositoriesSuite) TearDownSuite() {
	if s.pgPool != nil {
		s.pgPool.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
}

func (s *RepositoriesSuite) newUser(username string) *models.User {
	user := &models.User{Username: username, PasswordHash: "hash-" + username}
	require.NoError(s.T(), s.userRepo.CreateUser(s.ctx, s.pgPool, user))
	return user
}

func (s *RepositoriesSuite) TestUserUniqueness() {
	t := s.T()
	s.newUser("unique_user")

	dup := &models.User{Username: "unique_user", PasswordHash: "other-hash"}
	err := s.userRepo.CreateUser(s.ctx, s.pgPool, dup)
	require.ErrorIs(t, err, models.ErrUserAlreadyExists)

	loaded, err := s.userRepo.GetUserByUsername(s.ctx, s.pgPool, "unique_user")
	require.NoError(t, err)
	require.Equal(t, []string{models.RoleUser}, loaded.Roles)
	require.False(t, loaded.IsBanned)
}

func (s *RepositoriesSuite) TestPendingStoryLimit() {
	t := s.T()
	author := s.newUser("pending_author")

	first := &models.Story{
		AuthorID:   author.ID,
		AuthorName: author.Username,
		Title:      "Первая история",
		Content:    "Текст",
		Status:     models.StatusPending,
	}
	require.NoError(t, s.storyRepo.Create(s.ctx, s.pgPool, first))

	// Частичный уникальный индекс не пускает вторую pending-историю
	second := &models.Story{
		AuthorID:   author.ID,
		AuthorName: author.Username,
		Title:      "Вторая история",
		Content:    "Текст",
		Status:     models.StatusPending,
	}
	err := s.storyRepo.Create(s.ctx, s.pgPool, second)
	require.ErrorIs(t, err, models.ErrPendingStoryExists)

	// После публикации первой лимит освобождается
	now := time.Now().UTC()
	require.NoError(t, s.storyRepo.UpdateStatus(s.ctx, s.pgPool, first.ID, models.StatusPublished, &now))

	second.ID = uuid.Nil
	require.NoError(t, s.storyRepo.Create(s.ctx, s.pgPool, second))

	published, err := s.storyRepo.GetByID(s.ctx, s.pgPool, first.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)
}

func (s *RepositoriesSuite) TestLikeTransaction() {
	t := s.T()
	author := s.newUser("liked_author")
	reader := s.newUser("story_reader")

	story := &models.Story{
		AuthorID:   author.ID,
		AuthorName: author.Username,
		Title:      "Лайкаемая история",
		Content:    "Текст",
		Status:     models.StatusPublished,
	}
	require.NoError(t, s.storyRepo.Create(s.ctx, s.pgPool, story))

	// Лайк и счетчик в одной транзакции
	err := s.txManager.WithTransaction(s.ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		if err := s.likeRepo.AddLike(ctx, tx, reader.ID, story.ID); err != nil {
			return err
		}
		return s.storyRepo.IncrementLikesCount(ctx, tx, story.ID)
	})
	require.NoError(t, err)

	liked, err := s.likeRepo.CheckLike(s.ctx, s.pgPool, reader.ID, story.ID)
	require.NoError(t, err)
	require.True(t, liked)

	count, err := s.likeRepo.CountLikes(s.ctx, s.pgPool, story.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	reloaded, err := s.storyRepo.GetByID(s.ctx, s.pgPool, story.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), reloaded.LikesCount)

	// Повторный лайк нарушает первичный ключ, транзакция откатывается целиком
	err = s.txManager.WithTransaction(s.ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		if err := s.likeRepo.AddLike(ctx, tx, reader.ID, story.ID); err != nil {
			return err
		}
		return s.storyRepo.IncrementLikesCount(ctx, tx, story.ID)
	})
	require.ErrorIs(t, err, interfaces.ErrLikeAlreadyExists)

	reloaded, err = s.storyRepo.GetByID(s.ctx, s.pgPool, story.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), reloaded.LikesCount, "counter must not change after rollback")
}

func (s *RepositoriesSuite) TestTaxonomyTouch() {
	t := s.T()

	require.NoError(t, s.taxonomyRepo.TouchTags(s.ctx, s.pgPool, []string{"лес", "звери"}))
	// Повторное касание не создает дубликатов
	require.NoError(t, s.taxonomyRepo.TouchTags(s.ctx, s.pgPool, []string{"лес"}))

	tags, err := s.taxonomyRepo.ListTags(s.ctx, s.pgPool)
	require.NoError(t, err)

	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	require.Contains(t, names, "лес")
	require.Contains(t, names, "звери")
}

func (s *RepositoriesSuite) TestUserDeleteCascades() {
	t := s.T()
	author := s.newUser("cascade_author")

	story := &models.Story{
		AuthorID:   author.ID,
		AuthorName: author.Username,
		Title:      "История на удаление",
		Content:    "Текст",
		Status:     models.StatusPublished,
	}
	require.NoError(t, s.storyRepo.Create(s.ctx, s.pgPool, story))

	require.NoError(t, s.userRepo.DeleteUser(s.ctx, s.pgPool, author.ID))

	_, err := s.storyRepo.GetByID(s.ctx, s.pgPool, story.ID)
	require.ErrorIs(t, err, models.ErrNotFound, "stories must be removed with their author")
}

func TestRepositoriesSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(RepositoriesSuite))
}
