package db

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jknair0/beforeeach"

	"mangrovewatch/backend/server/api"
)

var (
	db   *sql.DB
	mock sqlmock.Sqlmock
)

func setUp() {
	db, mock, _ = sqlmock.New()
}

func tearDown() {
	db.Close()
}

var it = beforeeach.Create(setUp, tearDown)

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }

func TestCreateUser(t *testing.T) {
	it(func() {
		mock.ExpectQuery("SELECT id FROM users WHERE username = (.+) OR email = (.+)").
			WithArgs("priya", "priya@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec("INSERT INTO users (.+)").
			WithArgs("priya", "priya@example.com", "hashed").
			WillReturnResult(sqlmock.NewResult(7, 1))

		u, err := CreateUser(db, "priya", "priya@example.com", "hashed")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if u.ID != 7 || u.Username != "priya" {
			t.Errorf("Unexpected user: %+v", u)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestCreateUserDuplicate(t *testing.T) {
	it(func() {
		mock.ExpectQuery("SELECT id FROM users WHERE username = (.+) OR email = (.+)").
			WithArgs("priya", "other@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

		_, err := CreateUser(db, "priya", "other@example.com", "hashed")
		if !errors.Is(err, ErrDuplicateUser) {
			t.Fatalf("Expected ErrDuplicateUser, got %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestCreateUserDuplicateRace(t *testing.T) {
	it(func() {
		// Both racers pass the pre-check; the UNIQUE key rejects the loser.
		mock.ExpectQuery("SELECT id FROM users WHERE username = (.+) OR email = (.+)").
			WithArgs("priya", "priya@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec("INSERT INTO users (.+)").
			WithArgs("priya", "priya@example.com", "hashed").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'priya' for key 'uq_users_username'"})

		_, err := CreateUser(db, "priya", "priya@example.com", "hashed")
		if !errors.Is(err, ErrDuplicateUser) {
			t.Fatalf("Expected ErrDuplicateUser, got %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestSaveWorkflowResultWithPoints(t *testing.T) {
	it(func() {
		r := &api.ReportRecord{
			UserID:                    i64(7),
			Confidence:                0.91,
			Latitude:                  f64(21.17),
			Longitude:                 f64(72.83),
			Label:                     "healthy mangrove",
			SatelliteVegetationChange: f64(12.4),
			Status:                    "completed",
			PointsEarned:              20,
		}

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT\s+INTO workflow_results (.+)`).
			WithArgs(int64(7), 0.91, 21.17, 72.83, "healthy mangrove", 12.4, "completed", 20).
			WillReturnResult(sqlmock.NewResult(42, 1))
		mock.ExpectExec("UPDATE users SET total_reports = total_reports (.+)").
			WithArgs(20, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT\s+INTO points_history (.+)`).
			WithArgs(int64(7), 20, "report", "Mangrove report submission", int64(42)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		id, err := SaveWorkflowResult(db, r)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if id != 42 {
			t.Errorf("Expected report id 42, got %d", id)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestSaveWorkflowResultCustomDescription(t *testing.T) {
	it(func() {
		r := &api.ReportRecord{
			UserID:       i64(7),
			Confidence:   0.9,
			Label:        "mangrove cutting",
			Status:       "completed",
			PointsEarned: 15,
			Description:  "Fresh cutting near the east jetty",
		}

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT\s+INTO workflow_results (.+)`).
			WillReturnResult(sqlmock.NewResult(50, 1))
		mock.ExpectExec("UPDATE users SET total_reports = total_reports (.+)").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT\s+INTO points_history (.+)`).
			WithArgs(int64(7), 15, "report", "Fresh cutting near the east jetty", int64(50)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		if _, err := SaveWorkflowResult(db, r); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestSaveWorkflowResultZeroPoints(t *testing.T) {
	it(func() {
		r := &api.ReportRecord{
			UserID:       i64(7),
			Confidence:   0.8,
			Label:        "dumping/trash",
			Status:       "completed",
			PointsEarned: 0,
		}

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT\s+INTO workflow_results (.+)`).
			WithArgs(int64(7), 0.8, nil, nil, "dumping/trash", nil, "completed", 0).
			WillReturnResult(sqlmock.NewResult(43, 1))
		// Counters still move: total_reports + 1, points + 0. No history entry.
		mock.ExpectExec("UPDATE users SET total_reports = total_reports (.+)").
			WithArgs(0, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		if _, err := SaveWorkflowResult(db, r); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestSaveWorkflowResultAnonymous(t *testing.T) {
	it(func() {
		r := &api.ReportRecord{
			Confidence: 0.6,
			Label:      "healthy mangrove",
			Status:     "completed",
		}

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT\s+INTO workflow_results (.+)`).
			WithArgs(nil, 0.6, nil, nil, "healthy mangrove", nil, "completed", 0).
			WillReturnResult(sqlmock.NewResult(44, 1))
		mock.ExpectCommit()

		if _, err := SaveWorkflowResult(db, r); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestSaveWorkflowResultRollsBackOnHistoryFailure(t *testing.T) {
	it(func() {
		r := &api.ReportRecord{
			UserID:       i64(7),
			Label:        "healthy mangrove",
			Status:       "completed",
			PointsEarned: 15,
		}

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT\s+INTO workflow_results (.+)`).
			WillReturnResult(sqlmock.NewResult(45, 1))
		mock.ExpectExec("UPDATE users SET total_reports = total_reports (.+)").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT\s+INTO points_history (.+)`).
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		if _, err := SaveWorkflowResult(db, r); err == nil {
			t.Fatal("Expected an error when history insert fails")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestGetUserPointsUnknownUser(t *testing.T) {
	it(func() {
		mock.ExpectQuery("SELECT points FROM users WHERE id = (.+)").
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		_, err := GetUserPoints(db, 99)
		if !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("Expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestGetPointsHistory(t *testing.T) {
	it(func() {
		created := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
		mock.ExpectQuery(`SELECT id, points_earned, points_type, description, report_id, created_at\s+FROM points_history (.+)`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "points_earned", "points_type", "description", "report_id", "created_at"}).
				AddRow(1, 20, "report", "Mangrove report submission", 42, created).
				AddRow(2, 10, "report", "Mangrove report submission", nil, created))

		history, err := GetPointsHistory(db, 7)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("Expected 2 entries, got %d", len(history))
		}
		if history[0].ReportID == nil || *history[0].ReportID != 42 {
			t.Errorf("Unexpected report id: %+v", history[0])
		}
		if history[1].ReportID != nil {
			t.Errorf("Expected nil report id, got %v", *history[1].ReportID)
		}
	})
}

func TestGetUserReports(t *testing.T) {
	it(func() {
		created := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
		cols := []string{"id", "user_id", "confidence", "latitude", "longitude", "label", "satellite_vegetation_change", "status", "points_earned", "created_at"}
		mock.ExpectQuery(`SELECT id, user_id, confidence, (.+)\s+FROM workflow_results (.+)`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(42, 7, 0.91, 21.17, 72.83, "healthy mangrove", 12.4, "completed", 20, created).
				AddRow(43, 7, 0.8, nil, nil, "dumping/trash", nil, "completed", 0, created))

		reports, err := GetUserReports(db, 7)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(reports) != 2 {
			t.Fatalf("Expected 2 reports, got %d", len(reports))
		}
		if reports[0].SatelliteVegetationChange == nil || *reports[0].SatelliteVegetationChange != 12.4 {
			t.Errorf("Unexpected vegetation change: %+v", reports[0])
		}
		if reports[1].SatelliteVegetationChange != nil || reports[1].Latitude != nil {
			t.Errorf("Expected null satellite fields: %+v", reports[1])
		}
	})
}
