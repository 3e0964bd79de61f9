package i18n

import (
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/subwarden/resources"
)

var state = struct {
	sync.Mutex
	translations map[string]map[string]string
	loaded       map[string]bool
}{
	translations: make(map[string]map[string]string),
	loaded:       make(map[string]bool),
}

func load(lang string) {
	raw, err := resources.FS.ReadFile(fmt.Sprintf("i18n/%s.yml", lang))
	if err != nil {
		log.WithError(err).Errorln("cant load i18n")
		return
	}
	translations := make(map[string]string)
	if err := yaml.Unmarshal(raw, &translations); err != nil {
		log.WithError(err).Errorln("cant unmarshal i18n")
		return
	}
	state.translations[lang] = translations
}

// Get returns the translation of key for lang. Keys are the English
// strings themselves, so "en" and missing translations fall through to
// the key.
func Get(key, lang string) string {
	if "en" == lang {
		return key
	}
	state.Lock()
	defer state.Unlock()
	if !state.loaded[lang] {
		load(lang)
		state.loaded[lang] = true
	}
	if res, ok := state.translations[lang][key]; ok {
		return res
	}
	log.Tracef("no translation for key %q", key)
	return key
}

// GetLanguagesList returns the language codes with bundled translations.
// English is implicit, keys are already english.
func GetLanguagesList() []string {
	languages := []string{"en"}
	entries, err := resources.FS.ReadDir("i18n")
	if err != nil {
		log.WithError(err).Errorln("cant list i18n")
		return languages
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".yml") {
			languages = append(languages, strings.TrimSuffix(name, ".yml"))
		}
	}
	return languages
}
