package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/apex/log"
	"github.com/go-sql-driver/mysql"

	"mangrovewatch/backend/server/api"
	"mangrovewatch/common"
)

// MySQL duplicate-entry error against a UNIQUE key.
const mysqlErrDupEntry = 1062

var (
	// ErrDuplicateUser means the username or email is already registered.
	ErrDuplicateUser = errors.New("username or email already registered")
	// ErrUserNotFound means no user matched the lookup.
	ErrUserNotFound = errors.New("user not found")
)

// User is a registered reporter with running point totals.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Points       int
	TotalReports int
	CreatedAt    time.Time
}

func CreateUser(db *sql.DB, username, email, passwordHash string) (*User, error) {
	{
		rows, err := db.Query("SELECT id FROM users WHERE username = ? OR email = ?", username, email)
		if err != nil {
			log.Errorf("Error checking existing user %s: %v", username, err)
			return nil, err
		}
		defer rows.Close()
		if rows.Next() {
			return nil, ErrDuplicateUser
		}
	}

	result, err := db.Exec(`INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)`,
		username, email, passwordHash)
	common.LogResult("createUser", result, err, true)
	if err != nil {
		// A concurrent signup can slip past the pre-check and hit the
		// UNIQUE key instead.
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDupEntry {
			return nil, ErrDuplicateUser
		}
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &User{
		ID:       id,
		Username: username,
		Email:    email,
	}, nil
}

func GetUserByUsername(db *sql.DB, username string) (*User, error) {
	u := &User{}
	err := db.QueryRow(`SELECT id, username, email, password_hash, points, total_reports, created_at
		FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Points, &u.TotalReports, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		log.Errorf("Error getting user %s: %v", username, err)
		return nil, err
	}
	return u, nil
}

func GetUserByID(db *sql.DB, id int64) (*User, error) {
	u := &User{}
	err := db.QueryRow(`SELECT id, username, email, password_hash, points, total_reports, created_at
		FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Points, &u.TotalReports, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		log.Errorf("Error getting user %d: %v", id, err)
		return nil, err
	}
	return u, nil
}

// SaveWorkflowResult persists one report and its point award as a single
// logical unit: the workflow_results row, the optional points_history entry
// and the user counters commit or roll back together.
func SaveWorkflowResult(db *sql.DB, r *api.ReportRecord) (int64, error) {
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		log.Errorf("Error creating transaction: %v", err)
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `INSERT
	  INTO workflow_results (user_id, confidence, latitude, longitude, label, satellite_vegetation_change, status, points_earned)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UserID, r.Confidence, r.Latitude, r.Longitude, r.Label, r.SatelliteVegetationChange, r.Status, r.PointsEarned)
	common.LogResult("saveWorkflowResult", result, err, true)
	if err != nil {
		log.Errorf("Error inserting workflow result: %v", err)
		return 0, err
	}
	reportID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	if r.UserID != nil {
		result, err = tx.ExecContext(ctx, `UPDATE users SET total_reports = total_reports + 1, points = points + ? WHERE id = ?`,
			r.PointsEarned, *r.UserID)
		common.LogResult("updateUserCounters", result, err, true)
		if err != nil {
			log.Errorf("Error updating user counters: %v", err)
			return 0, err
		}

		if r.PointsEarned > 0 {
			description := r.Description
			if description == "" {
				description = "Mangrove report submission"
			}
			result, err = tx.ExecContext(ctx, `INSERT
			  INTO points_history (user_id, points_earned, points_type, description, report_id)
			  VALUES (?, ?, ?, ?, ?)`,
				*r.UserID, r.PointsEarned, "report", description, reportID)
			common.LogResult("appendPointsHistory", result, err, true)
			if err != nil {
				log.Errorf("Error appending points history: %v", err)
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		log.Errorf("Error committing the transaction: %v", err)
		return 0, err
	}
	return reportID, nil
}

func GetUserPoints(db *sql.DB, userID int64) (int, error) {
	var points int
	err := db.QueryRow(`SELECT points FROM users WHERE id = ?`, userID).Scan(&points)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrUserNotFound
		}
		log.Errorf("Could not retrieve points for user %d: %v", userID, err)
		return 0, err
	}
	return points, nil
}

func GetPointsHistory(db *sql.DB, userID int64) ([]api.PointsHistoryRecord, error) {
	rows, err := db.Query(`
	  SELECT id, points_earned, points_type, description, report_id, created_at
	  FROM points_history
	  WHERE user_id = ?
	  ORDER BY created_at DESC`, userID)
	if err != nil {
		log.Errorf("Could not retrieve points history for user %d: %v", userID, err)
		return nil, err
	}
	defer rows.Close()

	history := make([]api.PointsHistoryRecord, 0, 20)
	for rows.Next() {
		var (
			rec      api.PointsHistoryRecord
			reportID sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.PointsEarned, &rec.PointsType, &rec.Description, &reportID, &rec.CreatedAt); err != nil {
			log.Errorf("Cannot scan a points history row: %v", err)
			continue
		}
		if reportID.Valid {
			rec.ReportID = &reportID.Int64
		}
		history = append(history, rec)
	}
	return history, nil
}

func GetUserReports(db *sql.DB, userID int64) ([]api.ReportRecord, error) {
	rows, err := db.Query(`
	  SELECT id, user_id, confidence, latitude, longitude, label, satellite_vegetation_change, status, points_earned, created_at
	  FROM workflow_results
	  WHERE user_id = ?
	  ORDER BY created_at DESC`, userID)
	if err != nil {
		log.Errorf("Could not retrieve reports for user %d: %v", userID, err)
		return nil, err
	}
	defer rows.Close()

	reports := make([]api.ReportRecord, 0, 20)
	for rows.Next() {
		var (
			rec       api.ReportRecord
			uid       sql.NullInt64
			lat, lon  sql.NullFloat64
			vegChange sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &uid, &rec.Confidence, &lat, &lon, &rec.Label, &vegChange, &rec.Status, &rec.PointsEarned, &rec.CreatedAt); err != nil {
			log.Errorf("Cannot scan a report row: %v", err)
			continue
		}
		if uid.Valid {
			rec.UserID = &uid.Int64
		}
		if lat.Valid {
			rec.Latitude = &lat.Float64
		}
		if lon.Valid {
			rec.Longitude = &lon.Float64
		}
		if vegChange.Valid {
			rec.SatelliteVegetationChange = &vegChange.Float64
		}
		reports = append(reports, rec)
	}
	return reports, nil
}

func GetUserStats(db *sql.DB, userID int64) (*api.UserStatsResponse, error) {
	u, err := GetUserByID(db, userID)
	if err != nil {
		return nil, err
	}
	return &api.UserStatsResponse{
		Status:       "success",
		UserID:       u.ID,
		Username:     u.Username,
		Points:       u.Points,
		TotalReports: u.TotalReports,
	}, nil
}
