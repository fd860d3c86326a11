package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// execStep is one statement a scripted connection expects, in order.
type execStep struct {
	pattern *regexp.Regexp
	result  scriptedResult
}

// statementScript records every statement and matches writes against the
// expected steps. Reads are never scripted.
type statementScript struct {
	mu    sync.Mutex
	steps []execStep
	seen  []string
}

func (s *statementScript) exec(query string) (driver.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, query)
	if len(s.steps) == 0 {
		return nil, fmt.Errorf("unexpected statement: %s", query)
	}
	step := s.steps[0]
	if !step.pattern.MatchString(query) {
		return nil, fmt.Errorf("statement %q does not match %s", query, step.pattern)
	}
	s.steps = s.steps[1:]
	return step.result, nil
}

func (s *statementScript) remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}

type scriptedResult struct {
	lastInsertID int64
	rowsAffected int64
}

func (r scriptedResult) LastInsertId() (int64, error) { return r.lastInsertID, nil }

func (r scriptedResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

type scriptedConn struct {
	script *statementScript
}

func (c *scriptedConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *scriptedConn) Close() error { return nil }

func (c *scriptedConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

func (c *scriptedConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	return c.script.exec(query)
}

func (c *scriptedConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.script.mu.Lock()
	c.script.seen = append(c.script.seen, query)
	c.script.mu.Unlock()
	return nil, fmt.Errorf("unexpected query: %s", query)
}

type scriptedDriver struct {
	script *statementScript
}

func (d *scriptedDriver) Open(string) (driver.Conn, error) {
	return &scriptedConn{script: d.script}, nil
}

// newScriptedMySQL opens gorm on the mysql dialector over the script, with
// gorm's implicit transactions off.
func newScriptedMySQL(t *testing.T, steps ...execStep) (*gorm.DB, *statementScript) {
	t.Helper()
	script := &statementScript{steps: steps}
	name := fmt.Sprintf("scripted_%d", time.Now().UnixNano())
	sql.Register(name, &scriptedDriver{script: script})

	sqlDB, err := sql.Open(name, "")
	if err != nil {
		t.Fatalf("open scripted db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	return db, script
}
