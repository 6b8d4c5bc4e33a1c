package compiler

import (
	"slices"

	"github.com/richinex/agentbook/model"
)

// Merge combines a compiled parent with a compiled child and lets the
// commitments recompute segments derived from merged state, such as the
// repository list of USE PROJECT.
func (c *Compiler) Merge(parent, local model.Requirements) model.Requirements {
	return c.registry.Rederive(Merge(parent, local))
}

// Merge combines a compiled parent with a compiled child.
//
// Parent segments come first. Persona and dictionary sections are combined
// into one each, and a keyed segment present in both keeps the parent's
// position with the child's text. Model parameters the child set explicitly
// win; the rest come from the parent. Tools, MCP servers, knowledge sources,
// projects, samples and notes are unioned. Metadata keys of the child win,
// except string lists, which are unioned. IsClosed follows the child only when
// the child says CLOSED or OPEN. The parent reference is the child's.
func Merge(parent, local model.Requirements) model.Requirements {
	out := parent.Clone()

	out.Segments = mergeSegments(parent.Segments, local.Segments, parent.MaxSeq())

	out.Explicit = slices.Clone(parent.Explicit)
	for _, p := range local.Explicit {
		if !slices.Contains(out.Explicit, p) {
			out.Explicit = append(out.Explicit, p)
		}
	}
	if local.IsExplicit(model.ParamModelName) || !parent.IsExplicit(model.ParamModelName) {
		out.ModelName = local.ModelName
	}
	out.Temperature = pick(parent, local, model.ParamTemperature, parent.Temperature, local.Temperature)
	out.TopP = pick(parent, local, model.ParamTopP, parent.TopP, local.TopP)
	out.TopK = pick(parent, local, model.ParamTopK, parent.TopK, local.TopK)
	out.MaxTokens = pick(parent, local, model.ParamMaxTokens, parent.MaxTokens, local.MaxTokens)

	for _, def := range local.Tools {
		out = out.WithTool(def)
	}
	for _, s := range local.MCPServers {
		out = out.WithMCPServer(s)
	}
	for _, s := range local.KnowledgeSources {
		out = out.WithKnowledgeSource(s)
	}
	for _, p := range local.Projects {
		out = out.WithProject(p)
	}
	out.Samples = append(out.Samples, local.Samples...)
	out.Notes = append(out.Notes, local.Notes...)

	for k, v := range local.Metadata {
		childList, childIsList := v.([]string)
		parentList, parentIsList := out.Metadata[k].([]string)
		if !childIsList || !parentIsList {
			out.Metadata[k] = v
			continue
		}
		merged := slices.Clone(parentList)
		for _, item := range childList {
			if !slices.Contains(merged, item) {
				merged = append(merged, item)
			}
		}
		out.Metadata[k] = merged
	}

	out.ParentAgentURL = local.ParentAgentURL
	out.ParentExplicit = local.ParentExplicit
	if local.ClosedExplicit {
		out.IsClosed = local.IsClosed
		out.ClosedExplicit = true
	}
	return out.Rendered()
}

// pick takes the child's value when the child set it explicitly or the
// parent did not.
func pick[T any](parent, local model.Requirements, param string, parentValue, localValue *T) *T {
	if local.IsExplicit(param) || !parent.IsExplicit(param) {
		return clone(localValue)
	}
	return clone(parentValue)
}

func clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// mergeSegments appends the child segments after the parent's, renumbering
// them above offset.
func mergeSegments(parent, local []model.Segment, offset int) []model.Segment {
	out := slices.Clone(parent)
	for _, s := range local {
		s.Seq += offset
		switch {
		case len(s.Parts) > 0:
			parts := slices.Clone(s.Parts)
			for j := range parts {
				parts[j].Seq += offset
			}
			if i := slices.IndexFunc(out, func(o model.Segment) bool { return o.Kind == s.Kind }); i >= 0 {
				out[i].Parts = append(slices.Clone(out[i].Parts), parts...)
				out[i].Seq = s.Seq
				continue
			}
			s.Parts = parts
		case s.Key != "":
			if i := slices.IndexFunc(out, func(o model.Segment) bool { return o.Key == s.Key }); i >= 0 {
				out[i].Text = s.Text
				out[i].Important = s.Important
				continue
			}
		}
		out = append(out, s)
	}
	return out
}
