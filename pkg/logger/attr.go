package logger

import (
	"log/slog"
	"time"
)

// Error records err under "error". A nil err yields an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

const operationIDAttr = "operation_id"

func OperationID(id string) slog.Attr {
	return slog.String(operationIDAttr, id)
}

func ImojiID(id string) slog.Attr {
	return slog.String("imoji_id", id)
}

func Endpoint(name string) slog.Attr {
	return slog.String("endpoint", name)
}

func Status(code int) slog.Attr {
	return slog.Int("status", code)
}

func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Transition records a state change as "from" and "to" in a "state" group.
func Transition(from, to string) slog.Attr {
	return slog.Group("state", slog.String("from", from), slog.String("to", to))
}
