package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init points the global logger at stderr and, when path is set, appends to that file
// as well. The returned closer releases the log file.
func Init(level zerolog.Level, path string) (io.Closer, error) {
	writers := []io.Writer{os.Stderr}
	var closer io.Closer = nopCloser{}

	if path != "" {
		logFile, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, logFile)
		closer = logFile
	}

	multi := zerolog.MultiLevelWriter(writers...)

	logger := zerolog.New(multi).Level(level).With().Timestamp().Logger()
	log.Logger = logger

	if level == zerolog.DebugLevel {
		log.Debug().Msg("Log level set to DEBUG")
	}
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
