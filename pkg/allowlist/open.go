package allowlist

import (
	"strings"

	"github.com/pkg/errors"
)

// Source names which backing store Open selected.
type Source string

const (
	SourceSQLite Source = "sqlite"
	SourceRedis  Source = "redis"
	SourceFile   Source = "file"
	SourceStatic Source = "static"
)

// Settings selects an allow-list source. The first configured one wins, in the order
// DBPath, RedisKey, File, IDs.
type Settings struct {
	DBPath    string
	RedisKey  string
	RedisAddr string
	File      string
	IDs       []string
}

// Opened is a ready Checker plus the resources it holds.
type Opened struct {
	Checker Checker
	Source  Source
	close   func() error
}

func (o *Opened) Close() error {
	if o == nil || o.close == nil {
		return nil
	}
	return o.close()
}

func Open(s Settings) (*Opened, error) {
	switch {
	case strings.TrimSpace(s.DBPath) != "":
		dsn, err := SQLiteDSNForFile(strings.TrimSpace(s.DBPath))
		if err != nil {
			return nil, err
		}
		store, err := NewSQLiteStore(dsn)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite allow-list")
		}
		return &Opened{Checker: store, Source: SourceSQLite, close: store.Close}, nil

	case strings.TrimSpace(s.RedisKey) != "":
		rc, err := NewRedisCheckerForAddr(s.RedisAddr, s.RedisKey)
		if err != nil {
			return nil, err
		}
		return &Opened{Checker: rc, Source: SourceRedis, close: rc.Close}, nil

	case strings.TrimSpace(s.File) != "":
		list, err := LoadFile(strings.TrimSpace(s.File))
		if err != nil {
			return nil, err
		}
		if list.Len() == 0 {
			return nil, errors.Errorf("allow-list file %s lists no businesses", s.File)
		}
		return &Opened{Checker: list, Source: SourceFile}, nil

	default:
		list := NewStaticList(s.IDs...)
		if list.Len() == 0 {
			return nil, errors.New("no allow-list configured: set business ids, a file, a database or a redis key")
		}
		return &Opened{Checker: list, Source: SourceStatic}, nil
	}
}
