package telemetry

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type registerFunc func(name string, fn func(*gorm.DB)) error

// gormHook is one GORM processor with its built-in callback name.
type gormHook struct {
	operation string
	before    registerFunc
	after     registerFunc
}

func gormHooks(db *gorm.DB) []gormHook {
	cb := db.Callback()
	return []gormHook{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
}

// registerAround registers before and after on every processor under
// "<prefix>:before_<op>" and "<prefix>:after_<op>". after receives the
// operation name.
func registerAround(db *gorm.DB, prefix string, before func(*gorm.DB), after func(*gorm.DB, string)) error {
	for _, hook := range gormHooks(db) {
		if before != nil {
			if err := hook.before(prefix+":before_"+hook.operation, before); err != nil {
				return err
			}
		}
		op := hook.operation
		if err := hook.after(prefix+":after_"+op, func(tx *gorm.DB) { after(tx, op) }); err != nil {
			return err
		}
	}
	return nil
}

type startTimeKey struct{ prefix string }

// stampStart returns a before-callback storing the statement start time under prefix.
func stampStart(prefix string) func(*gorm.DB) {
	key := startTimeKey{prefix}
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, key, time.Now())
	}
}

// elapsedSince returns the time since stampStart(prefix) ran for db's statement.
func elapsedSince(db *gorm.DB, prefix string) (time.Duration, bool) {
	if db.Statement.Context == nil {
		return 0, false
	}
	start, ok := db.Statement.Context.Value(startTimeKey{prefix}).(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(start), true
}
