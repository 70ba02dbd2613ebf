package logger

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Field is one structured log attribute.
type Field interface {
	AddTo(event *zerolog.Event)
	KeyValue() (string, interface{})
}

type stringField struct {
	key   string
	value string
}

func (f stringField) AddTo(event *zerolog.Event)    { event.Str(f.key, f.value) }
func (f stringField) KeyValue() (string, interface{}) { return f.key, f.value }

type intField struct {
	key   string
	value int64
}

func (f intField) AddTo(event *zerolog.Event)    { event.Int64(f.key, f.value) }
func (f intField) KeyValue() (string, interface{}) { return f.key, f.value }

type floatField struct {
	key   string
	value float64
}

func (f floatField) AddTo(event *zerolog.Event)    { event.Float64(f.key, f.value) }
func (f floatField) KeyValue() (string, interface{}) { return f.key, f.value }

type boolField struct {
	key   string
	value bool
}

func (f boolField) AddTo(event *zerolog.Event)    { event.Bool(f.key, f.value) }
func (f boolField) KeyValue() (string, interface{}) { return f.key, f.value }

type errorField struct {
	value error
}

func (f errorField) AddTo(event *zerolog.Event) { event.Err(f.value) }
func (f errorField) KeyValue() (string, interface{}) {
	if f.value == nil {
		return "error", nil
	}
	return "error", f.value.Error()
}

type anyField struct {
	key   string
	value interface{}
}

func (f anyField) AddTo(event *zerolog.Event)    { event.Interface(f.key, f.value) }
func (f anyField) KeyValue() (string, interface{}) { return f.key, f.value }

// --- Field constructors ---

func String(key, value string) Field { return stringField{key: key, value: value} }

func Strings(key string, values []string) Field {
	return stringField{key: key, value: strings.Join(values, ", ")}
}

func Int(key string, value int) Field { return intField{key: key, value: int64(value)} }

func Int64(key string, value int64) Field { return intField{key: key, value: value} }

func Uint64(key string, value uint64) Field { return intField{key: key, value: int64(value)} }

func Float64(key string, value float64) Field { return floatField{key: key, value: value} }

func Bool(key string, value bool) Field { return boolField{key: key, value: value} }

func Error(err error) Field { return errorField{value: err} }

func Any(key string, value interface{}) Field { return anyField{key: key, value: value} }

func Duration(key string, value time.Duration) Field {
	return intField{key: key, value: int64(value / time.Millisecond)}
}
