package commitment

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/richinex/agentbook/model"
)

// modelHandler sets the model and its sampling parameters. Two forms are
// accepted, one per content line:
//
//	MODEL gpt-4.1 temperature=0.2 topP=0.8
//	MODEL TEMPERATURE 0.2
//
// A later value for the same parameter overwrites an earlier one.
type modelHandler struct {
	base
	logger *slog.Logger
}

func newModel(logger *slog.Logger) *modelHandler {
	return &modelHandler{
		base:   newBase("MODEL", true, "Model name and sampling parameters", "MODELS"),
		logger: logger,
	}
}

func (h *modelHandler) Apply(req model.Requirements, content string) model.Requirements {
	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if strings.Contains(fields[0], "=") {
			req = h.applyPairs(req, fields)
			continue
		}
		if param := modelParam(fields[0]); param != "" {
			if len(fields) < 2 {
				h.logger.Warn("MODEL parameter without value", "parameter", fields[0])
				continue
			}
			req = h.set(req, param, strings.Join(fields[1:], " "))
			continue
		}
		req = req.WithModelName(fields[0])
		req = h.applyPairs(req, fields[1:])
	}
	return req
}

func (h *modelHandler) applyPairs(req model.Requirements, pairs []string) model.Requirements {
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		param := modelParam(key)
		if !ok || param == "" {
			h.logger.Warn("ignoring MODEL option", "option", pair)
			continue
		}
		req = h.set(req, param, value)
	}
	return req
}

// modelParam maps TOP_P, top-p, topP and TOPP to model.ParamTopP and so on.
// Unknown names map to "".
func modelParam(raw string) string {
	key := strings.ToUpper(strings.NewReplacer("_", "", "-", "").Replace(raw))
	switch key {
	case "NAME", "MODELNAME":
		return model.ParamModelName
	case "TEMPERATURE", "TEMP":
		return model.ParamTemperature
	case "TOPP":
		return model.ParamTopP
	case "TOPK":
		return model.ParamTopK
	case "MAXTOKENS":
		return model.ParamMaxTokens
	}
	return ""
}

func (h *modelHandler) set(req model.Requirements, param, value string) model.Requirements {
	value = strings.TrimSpace(value)
	invalid := func(err error) model.Requirements {
		h.logger.Warn("invalid MODEL value", "parameter", param, "value", value, "error", err)
		return req
	}

	switch param {
	case model.ParamModelName:
		if value == "" {
			return req
		}
		return req.WithModelName(value)
	case model.ParamTemperature:
		v, err := parseFloatIn(value, 0, 2)
		if err != nil {
			return invalid(err)
		}
		return req.WithTemperature(v)
	case model.ParamTopP:
		v, err := parseFloatIn(value, 0, 1)
		if err != nil {
			return invalid(err)
		}
		return req.WithTopP(v)
	case model.ParamTopK:
		v, err := parsePositiveInt(value)
		if err != nil {
			return invalid(err)
		}
		return req.WithTopK(v)
	case model.ParamMaxTokens:
		v, err := parsePositiveInt(value)
		if err != nil {
			return invalid(err)
		}
		return req.WithMaxTokens(v)
	}
	return req
}

func parseFloatIn(s string, lo, hi float64) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, &strconv.NumError{Func: "ParseFloat", Num: s, Err: strconv.ErrRange}
	}
	return v, nil
}

func parsePositiveInt(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v < 1 {
		return 0, &strconv.NumError{Func: "Atoi", Num: s, Err: strconv.ErrRange}
	}
	return v, nil
}
