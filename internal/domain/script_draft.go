package domain

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScriptDraft is one operation of a script written as a text file.
// Fields are ordered to minimize memory padding.
type ScriptDraft struct {
	Parent    *DraftParent
	Body      string
	Kind      Kind
	Role      Role
	MaxTokens int
	Options   int
}

// DraftParent places a draft inside option Option (0-based) of the branch
// defined by draft Block (0-based) of the same file.
type DraftParent struct {
	Block  int
	Option int
}

type draftHeader struct {
	Type      string `yaml:"type"`
	Role      string `yaml:"role"`
	Parent    string `yaml:"parent"`
	MaxTokens int    `yaml:"max_tokens"`
	Options   int    `yaml:"options"`
}

// ParseScriptDrafts parses a file holding one or more operations.
// Operations are separated by frontmatter blocks starting with "---".
//
// Format:
//
//	---
//	role: system
//	---
//	You are a helpful assistant.
//
//	---
//	type: branch
//	options: 2
//	---
//
//	---
//	role: user
//	parent: 2.1
//	---
//	Be brief.
//
//	---
//	type: completion
//	max_tokens: 100
//	---
//
// Parent references name a branch earlier in the file by its 1-based
// position and, after a dot, the 1-based option ("2" means "2.1").
func ParseScriptDrafts(content string) ([]ScriptDraft, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyFile
	}

	blocks := splitDraftBlocks(content)
	if len(blocks) == 0 {
		return nil, ErrNoOperationsInFile
	}

	drafts := make([]ScriptDraft, 0, len(blocks))
	for i, block := range blocks {
		draft, err := parseDraftBlock(block, i, drafts)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i+1, err)
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

// splitDraftBlocks splits content into separate blocks, each made of a
// frontmatter and a body joined by the closing "---".
func splitDraftBlocks(content string) [][]string {
	var blocks [][]string
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	var current []string
	started := false
	inHeader := false
	for i, line := range lines {
		if line != "---" {
			if started {
				current = append(current, line)
			}
			continue
		}
		switch {
		case !started:
			started, inHeader = true, true
			current = []string{}
		case inHeader:
			// Closing "---" of the frontmatter.
			inHeader = false
			current = append(current, line)
		case i+1 < len(lines) && isDraftKey(lines[i+1]), i+1 < len(lines) && lines[i+1] == "---":
			blocks = append(blocks, current)
			current = []string{}
			inHeader = true
		default:
			// A separator inside the body.
			current = append(current, line)
		}
	}
	if started {
		blocks = append(blocks, current)
	}
	return blocks
}

// isDraftKey checks if a line looks like a frontmatter key.
func isDraftKey(line string) bool {
	for _, key := range []string{"type:", "role:", "parent:", "max_tokens:", "options:"} {
		if strings.HasPrefix(line, key) {
			return true
		}
	}
	return false
}

func parseDraftBlock(lines []string, pos int, earlier []ScriptDraft) (ScriptDraft, error) {
	end := -1
	for i, line := range lines {
		if line == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		return ScriptDraft{}, ErrUnterminatedFrontmatter
	}

	var h draftHeader
	dec := yaml.NewDecoder(bytes.NewBufferString(strings.Join(lines[:end], "\n")))
	dec.KnownFields(true)
	if err := dec.Decode(&h); err != nil && !errors.Is(err, io.EOF) {
		return ScriptDraft{}, fmt.Errorf("frontmatter: %w", err)
	}

	d := ScriptDraft{Kind: KindText, MaxTokens: h.MaxTokens, Options: h.Options}
	if h.Type != "" {
		k, err := ParseKind(h.Type)
		if err != nil {
			return ScriptDraft{}, err
		}
		d.Kind = k
	}
	switch {
	case h.Role != "":
		r, err := ParseRole(h.Role)
		if err != nil {
			return ScriptDraft{}, err
		}
		d.Role = r
	case d.Kind == KindText:
		d.Role = RoleUser
	default:
		d.Role = RoleAssistant
	}
	if d.Kind == KindBranch && d.Options <= 0 {
		d.Options = 1
	}
	if d.Kind == KindCompletion && d.MaxTokens <= 0 {
		d.MaxTokens = DefaultMaxTokens
	}

	if h.Parent != "" {
		p, err := parseDraftParent(h.Parent, pos, earlier)
		if err != nil {
			return ScriptDraft{}, err
		}
		d.Parent = p
	}

	d.Body = strings.Trim(strings.Join(lines[end+1:], "\n"), "\n")
	return d, nil
}

// parseDraftParent resolves a "block" or "block.option" reference to a branch
// defined before position pos.
func parseDraftParent(ref string, pos int, earlier []ScriptDraft) (*DraftParent, error) {
	blockStr, optStr, hasOpt := strings.Cut(ref, ".")
	block, err := strconv.Atoi(blockStr)
	if err != nil || block <= 0 || block > pos {
		return nil, fmt.Errorf("%w: %q", ErrInvalidParentRef, ref)
	}
	option := 1
	if hasOpt {
		option, err = strconv.Atoi(optStr)
		if err != nil || option <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidParentRef, ref)
		}
	}
	parent := earlier[block-1]
	if parent.Kind != KindBranch || option > parent.Options {
		return nil, fmt.Errorf("%w: %q is not a branch option", ErrInvalidParentRef, ref)
	}
	return &DraftParent{Block: block - 1, Option: option - 1}, nil
}

// BuildDraftScript assembles drafts into a script. Text operations start
// untokenized.
func BuildDraftScript(drafts []ScriptDraft) *Script {
	type slot struct{ block, option int }
	children := make(map[slot][]int)
	var roots []int
	for i, d := range drafts {
		if d.Parent == nil {
			roots = append(roots, i)
			continue
		}
		s := slot{d.Parent.Block, d.Parent.Option}
		children[s] = append(children[s], i)
	}

	var build func(i int) *Operation
	build = func(i int) *Operation {
		d := drafts[i]
		switch d.Kind {
		case KindCompletion:
			return NewCompletion(d.Role, d.MaxTokens)
		case KindBranch:
			options := make([]*OperationList, d.Options)
			for o := range options {
				var ops []*Operation
				for _, c := range children[slot{i, o}] {
					ops = append(ops, build(c))
				}
				options[o] = NewOperationList(d.Role, ops...)
			}
			return NewBranch(d.Role, options...)
		}
		return NewText(d.Role, d.Body, nil)
	}

	ops := make([]*Operation, 0, len(roots))
	for _, i := range roots {
		ops = append(ops, build(i))
	}
	return NewScript(ops...)
}
