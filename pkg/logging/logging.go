package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the interface accepted by all gateway client components. It is
// satisfied by *logrus.Logger and *logrus.Entry.
type Logger interface {
	logrus.FieldLogger
	Writer() *io.PipeWriter
}
