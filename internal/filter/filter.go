package filter

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/Andrei-Barwood/secretgate/internal/model"
)

type Options struct {
	Whitelist *Whitelist
	Required  []string
	Logger    logrus.FieldLogger
}

type Filter struct {
	whitelist Whitelist
	required  []string
	log       logrus.FieldLogger
}

func New(opts Options) *Filter {
	f := &Filter{
		whitelist: DefaultWhitelist,
		required:  append([]string(nil), DefaultRequired...),
		log:       opts.Logger,
	}
	if opts.Whitelist != nil {
		f.whitelist = *opts.Whitelist
	}
	if opts.Required != nil {
		f.required = append([]string(nil), opts.Required...)
	}
	if f.log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		f.log = discard
	}
	return f
}

// Classify splits report entries into whitelisted and flagged ones and derives
// the outcome. A missing required entry wins over flagged secrets.
func (f *Filter) Classify(rep model.Report) model.Outcome {
	found := make(map[string]bool, len(f.required))
	for _, r := range f.required {
		found[r] = false
	}

	out := model.Outcome{Required: append([]string{}, f.required...)}
	for _, e := range rep.Entries {
		if _, ok := found[e.Path]; ok {
			found[e.Path] = true
		}

		if rule, ok := f.whitelist.match(e.Path); ok {
			f.log.WithFields(logrus.Fields{"path": e.Path, "rule": rule}).Debug("finding whitelisted")
			out.Whitelisted = append(out.Whitelisted, e.Path)
			continue
		}
		f.log.WithField("path", e.Path).Info("finding outside whitelist")
		out.Flagged = append(out.Flagged, e)
	}

	for _, r := range f.required {
		if !found[r] {
			out.Missing = append(out.Missing, r)
		}
	}

	switch {
	case len(out.Missing) > 0:
		out.Status = model.StatusMissingRequired
		out.ExitCode = model.ExitMissingRequired
	case out.SecretsFound():
		out.Status = model.StatusSecretsFound
		out.ExitCode = model.ExitSecretsFound
	default:
		out.Status = model.StatusClean
		out.ExitCode = model.ExitClean
	}

	f.log.WithFields(logrus.Fields{
		"entries":     len(rep.Entries),
		"flagged":     len(out.Flagged),
		"whitelisted": len(out.Whitelisted),
		"missing":     len(out.Missing),
	}).Debug("report classified")

	return out
}
