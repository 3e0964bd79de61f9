package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

type SwFormatter struct{}

var levelColors = map[log.Level]int{
	log.TraceLevel: 37,
	log.DebugLevel: 37,
	log.InfoLevel:  36,
	log.WarnLevel:  33,
	log.ErrorLevel: 31,
	log.FatalLevel: 31,
	log.PanicLevel: 31,
}

func (f *SwFormatter) Format(entry *log.Entry) ([]byte, error) {
	const (
		cyan        = 96
		green       = 32
		lightYellow = 93
		lightGreen  = 92
	)
	color, ok := levelColors[entry.Level]
	if !ok {
		color = 36
	}
	level := fmt.Sprintf("\x1b[%dm%s\x1b[0m", color, strings.ToUpper(entry.Level.String())[:4])

	output := fmt.Sprintf("\x1b[%dmlevel\x1b[0m=%s", cyan, level)
	output += fmt.Sprintf(" \x1b[%dmts\x1b[0m=\x1b[%dm%s\x1b[0m", cyan, lightYellow, entry.Time.Format("2006-01-02 15:04:05.000"))

	for k, val := range entry.Data {
		s := ""
		if m, err := json.Marshal(val); err == nil {
			s = string(m)
		}
		if s == "" {
			continue
		}
		valueColor := cyan
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			valueColor = green
		} else if strings.HasPrefix(s, "\"") {
			valueColor = lightYellow
		}
		output += fmt.Sprintf(" \x1b[%dm%s\x1b[0m=\x1b[%dm%s\x1b[0m", cyan, k, valueColor, s)
	}
	output += fmt.Sprintf(" \x1b[%dmmsg\x1b[0m=\x1b[%dm%q\x1b[0m", cyan, lightGreen, entry.Message)
	output = strings.ReplaceAll(output, "\r", "\\r")
	output = strings.ReplaceAll(output, "\n", "\\n") + "\n"
	return []byte(output), nil
}
