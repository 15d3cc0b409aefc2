package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"nutrichat/backend/internal/models"
	"nutrichat/backend/pkg/jwt"
	"nutrichat/backend/pkg/logger"
	"nutrichat/backend/pkg/resilience"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens a named in-memory SQLite database so the connection pool
// shares one schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Conversation{}, &models.Message{}))
	return db
}

func newTestLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error"})
}

func newTestJWT() *jwt.Service {
	return jwt.NewService("test-secret", time.Hour)
}

func newTestBreaker() *resilience.CircuitBreaker {
	return resilience.New(resilience.DefaultConfig("test"), newTestLogger())
}
