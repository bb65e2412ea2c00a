// Package binder turns a decoded declaration document into a sealed
// tparams.Arena: it names types, registers generic declarations and binds
// every constraint clause. Problems become diagnostics; binding never fails.
package binder

import (
	"fmt"
	"strings"

	"tpcheck/internal/declfile"
	"tpcheck/internal/diag"
	"tpcheck/internal/tparams"
	"tpcheck/internal/trace"
	"tpcheck/internal/types"
)

// Options configure binding.
type Options struct {
	// Exclusion is used when the document does not override it. Zero selects
	// tparams.DefaultExclusion.
	Exclusion tparams.ExclusionSet
	Tracer    trace.Tracer
}

// Result is a bound document.
type Result struct {
	Types *types.Interner
	Arena *tparams.Arena
	// Exclusion is the set the arena was built with.
	Exclusion tparams.ExclusionSet
}

type typeEntry struct {
	decl      *declfile.TypeDecl
	qualified string
	id        types.TypeID
	declID    tparams.DeclID
	params    []tparams.ParamID
	scope     *scope
	methods   []tparams.DeclID
}

type methodEntry struct {
	decl      *declfile.MethodDecl
	qualified string
	declID    tparams.DeclID
	params    []tparams.ParamID
	scope     *scope
	owner     *typeEntry
}

type binder struct {
	doc       *declfile.Document
	in        *types.Interner
	arena     *tparams.Arena
	rep       diag.Reporter
	typeList  []*typeEntry
	typeNames map[string]*typeEntry
	byDef     map[types.TypeID]*typeEntry
	methods   []*methodEntry
	methodMap map[string]*methodEntry
	allParams map[string]struct{}
}

// Bind binds doc. Diagnostics go to rep.
func Bind(doc *declfile.Document, opts Options, rep diag.Reporter) *Result {
	exclusion := opts.Exclusion
	if exclusion == 0 {
		exclusion = tparams.DefaultExclusion
	}
	if len(doc.Exclusion) > 0 {
		set, err := tparams.ParseExclusion(doc.Exclusion)
		if err != nil {
			diag.ReportError(rep, diag.DeclValidation, "exclusion", err.Error()).Emit()
		} else {
			exclusion = set
		}
	}
	in := types.NewInterner()
	arenaOpts := []tparams.Option{tparams.WithExclusion(exclusion)}
	if opts.Tracer != nil {
		arenaOpts = append(arenaOpts, tparams.WithTracer(opts.Tracer))
	}
	b := &binder{
		doc:       doc,
		in:        in,
		arena:     tparams.NewArena(in, arenaOpts...),
		rep:       rep,
		typeNames: make(map[string]*typeEntry),
		byDef:     make(map[types.TypeID]*typeEntry),
		methodMap: make(map[string]*methodEntry),
		allParams: make(map[string]struct{}),
	}

	b.declareTypes(doc.Types, nil)
	for _, te := range b.typeList {
		b.bindTypeBody(te)
	}
	for i := range doc.Methods {
		b.declareMethod(&doc.Methods[i], nil)
	}
	for _, te := range b.typeList {
		for i, pid := range te.params {
			b.bindClause(pid, &te.decl.Params[i], te.scope, te.qualified)
		}
	}
	for _, me := range b.methods {
		prefix := ""
		if me.owner != nil {
			prefix = me.owner.qualified
		}
		for i, pid := range me.params {
			b.bindClause(pid, &me.decl.Params[i], me.scope, prefix)
		}
	}
	b.arena.Seal()

	for _, inst := range doc.Instances {
		b.bindInstance(inst)
	}
	for _, syn := range doc.Synthesize {
		b.bindSynthesis(syn)
	}
	return &Result{Types: in, Arena: b.arena, Exclusion: exclusion}
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func (b *binder) declareTypes(list []declfile.TypeDecl, parent *typeEntry) {
	for i := range list {
		td := &list[i]
		prefix, enclosing := "", tparams.NoDeclID
		var parentScope *scope
		if parent != nil {
			prefix, enclosing, parentScope = parent.qualified, parent.declID, parent.scope
		}
		qualified := qualify(prefix, td.Name)
		if _, dup := b.typeNames[qualified]; dup {
			diag.ReportError(b.rep, diag.DeclDuplicateName, qualified, fmt.Sprintf("type '%s' is declared more than once", qualified)).Emit()
			continue
		}
		if _, predeclared := b.in.Predeclared()[qualified]; predeclared {
			diag.ReportError(b.rep, diag.DeclDuplicateName, qualified, fmt.Sprintf("type '%s' redeclares a predeclared type", qualified)).Emit()
			continue
		}
		kind, ok := types.ParseNominalKind(td.KindOrDefault())
		if !ok {
			diag.ReportError(b.rep, diag.DeclValidation, qualified, fmt.Sprintf("unknown type kind %q", td.Kind)).Emit()
			continue
		}
		id := b.in.RegisterNominal(kind, qualified)
		te := &typeEntry{decl: td, qualified: qualified, id: id}
		te.declID = b.arena.DeclareType(td.Name, enclosing, id)
		te.scope = newScope(parentScope)
		te.params = b.addParams(te.declID, td.Params, te.scope, qualified)
		if len(te.params) > 0 {
			paramTypes := make([]types.TypeID, len(te.params))
			for j, pid := range te.params {
				paramTypes[j] = b.arena.ParamType(pid)
			}
			b.in.SetParams(id, paramTypes)
		}
		b.typeNames[qualified] = te
		b.byDef[id] = te
		b.typeList = append(b.typeList, te)
		b.declareTypes(td.Types, te)
	}
}

// addParams registers the parameters of a declaration, skipping duplicates.
// The returned slice is parallel to params, with NoParamID for skipped ones.
func (b *binder) addParams(decl tparams.DeclID, params []declfile.ParamDecl, sc *scope, owner string) []tparams.ParamID {
	ids := make([]tparams.ParamID, len(params))
	for i, pd := range params {
		subject := owner + "." + pd.Name
		if _, dup := sc.params[pd.Name]; dup {
			diag.ReportError(b.rep, diag.BindDuplicateTypeParam, subject, fmt.Sprintf("duplicate type parameter '%s' on '%s'", pd.Name, owner)).Emit()
			continue
		}
		pid := b.arena.AddParam(decl, pd.Name)
		sc.params[pd.Name] = pid
		b.allParams[pd.Name] = struct{}{}
		ids[i] = pid
		if pd.Unusable != "" {
			b.arena.SetUseSiteError(pid, diag.NewError(diag.UseSiteUnusableType, subject, pd.Unusable))
		}
	}
	return ids
}

func (b *binder) bindTypeBody(te *typeEntry) {
	td := te.decl
	if td.Base != "" {
		if base, ok := b.resolveText(td.Base, te.scope, te.qualified, te.qualified); ok {
			if b.in.IsInterface(base) {
				diag.ReportError(b.rep, diag.BindConstraintKindPosition, te.qualified,
					fmt.Sprintf("base '%s' of '%s' is an interface; list it under interfaces", td.Base, te.qualified)).Emit()
				b.in.SetInterfaces(te.id, []types.TypeID{base})
			} else {
				b.in.SetBase(te.id, base)
			}
		}
	}
	var ifaces []types.TypeID
	if existing := b.in.Interfaces(te.id); len(existing) > 0 {
		ifaces = existing
	}
	for _, text := range td.Interfaces {
		if t, ok := b.resolveText(text, te.scope, te.qualified, te.qualified); ok {
			ifaces = append(ifaces, t)
		}
	}
	if len(ifaces) > 0 {
		b.in.SetInterfaces(te.id, ifaces)
	}
	var fields []types.TypeID
	for _, text := range td.Fields {
		if t, ok := b.resolveText(text, te.scope, te.qualified, te.qualified); ok {
			fields = append(fields, t)
		}
	}
	if len(fields) > 0 {
		b.in.SetFields(te.id, fields)
	}
	if td.Sealed {
		b.in.SetSealed(te.id, true)
	}
	if td.Unusable != "" {
		b.in.SetUseSiteError(te.id, diag.NewError(diag.UseSiteUnusableType, te.qualified, td.Unusable))
	}
	for i := range td.Methods {
		b.declareMethod(&td.Methods[i], te)
	}
}

func (b *binder) declareMethod(md *declfile.MethodDecl, owner *typeEntry) {
	prefix, enclosing := "", tparams.NoDeclID
	var parentScope *scope
	if owner != nil {
		prefix, enclosing, parentScope = owner.qualified, owner.declID, owner.scope
	}
	qualified := qualify(prefix, md.Name)
	if _, dup := b.methodMap[qualified]; dup {
		diag.ReportError(b.rep, diag.DeclDuplicateName, qualified, fmt.Sprintf("method '%s' is declared more than once", qualified)).Emit()
		return
	}
	me := &methodEntry{decl: md, qualified: qualified, owner: owner, scope: newScope(parentScope)}
	me.declID = b.arena.DeclareMethod(md.Name, enclosing)
	me.params = b.addParams(me.declID, md.Params, me.scope, qualified)
	b.methods = append(b.methods, me)
	b.methodMap[qualified] = me
	if owner != nil {
		owner.methods = append(owner.methods, me.declID)
	}
}

func (b *binder) bindInstance(inst declfile.Instance) {
	t, ok := b.resolveText(inst.Type, nil, "", inst.Type)
	if !ok {
		return
	}
	info, isInstance := b.in.InstanceInfo(t)
	if !isInstance {
		diag.ReportError(b.rep, diag.BindNotGeneric, inst.Type, fmt.Sprintf("'%s' is not a constructed generic type", inst.Type)).Emit()
		return
	}
	te := b.byDef[info.Origin]
	if te == nil {
		return
	}
	for _, m := range te.methods {
		if _, err := b.arena.Substitute(m, t); err != nil {
			diag.ReportError(b.rep, diag.BindNotGeneric, inst.Type, err.Error()).Emit()
		}
	}
}

func (b *binder) bindSynthesis(syn declfile.Synthesis) {
	src, ok := b.methodMap[syn.From]
	if !ok {
		diag.ReportError(b.rep, diag.BindUnknownDeclaration, syn.From, fmt.Sprintf("unknown method '%s'", syn.From)).Emit()
		return
	}
	prefix, enclosing := "", tparams.NoDeclID
	if src.owner != nil {
		prefix, enclosing = src.owner.qualified, src.owner.declID
	}
	qualified := qualify(prefix, syn.Name)
	if _, dup := b.methodMap[qualified]; dup {
		diag.ReportError(b.rep, diag.DeclDuplicateName, qualified, fmt.Sprintf("method '%s' is declared more than once", qualified)).Emit()
		return
	}
	id, err := b.arena.Synthesize(src.declID, syn.Name, enclosing)
	if err != nil {
		diag.ReportError(b.rep, diag.BindUnknownDeclaration, syn.From, err.Error()).Emit()
		return
	}
	b.methodMap[qualified] = &methodEntry{qualified: qualified, declID: id, owner: src.owner}
}

// resolveText parses and resolves a type expression. subject names the
// declaration the expression belongs to.
func (b *binder) resolveText(text string, sc *scope, prefix, subject string) (types.TypeID, bool) {
	expr, err := ParseTypeExpr(text)
	if err != nil {
		diag.ReportError(b.rep, diag.DeclBadTypeExpr, subject, err.Error()).Emit()
		return types.NoTypeID, false
	}
	return b.resolve(expr, sc, prefix, subject), true
}

// resolve maps an expression onto a TypeID. Unknown names become error types.
func (b *binder) resolve(e *TypeExpr, sc *scope, prefix, subject string) types.TypeID {
	t := b.resolveName(e, sc, prefix, subject)
	for _, s := range e.Suffix {
		if s == '[' {
			t = b.in.Array(t)
		} else {
			t = b.in.Pointer(t)
		}
	}
	return t
}

func (b *binder) resolveName(e *TypeExpr, sc *scope, prefix, subject string) types.TypeID {
	args := make([]types.TypeID, len(e.Args))
	for i, a := range e.Args {
		args[i] = b.resolve(a, sc, prefix, subject)
	}

	if len(e.Args) == 0 {
		if pid, ok := sc.lookup(e.Name); ok {
			return b.arena.ParamType(pid)
		}
	}
	if te := b.lookupType(e.Name, prefix); te != nil {
		switch {
		case len(args) == 0:
			return te.id
		case len(te.params) == 0:
			diag.ReportError(b.rep, diag.BindNotGeneric, subject, fmt.Sprintf("type '%s' is not generic", te.qualified)).Emit()
			return b.in.ErrorType(e.String())
		case len(args) != len(te.params):
			diag.ReportError(b.rep, diag.BindArityMismatch, subject,
				fmt.Sprintf("type '%s' expects %d type arguments, got %d", te.qualified, len(te.params), len(args))).Emit()
			return b.in.ErrorType(e.String())
		}
		return b.in.Instance(te.id, args)
	}
	if id, ok := b.in.Predeclared()[e.Name]; ok {
		if len(args) > 0 {
			diag.ReportError(b.rep, diag.BindNotGeneric, subject, fmt.Sprintf("type '%s' is not generic", e.Name)).Emit()
			return b.in.ErrorType(e.String())
		}
		return id
	}
	if _, isParam := b.allParams[e.Name]; isParam && len(e.Args) == 0 {
		diag.ReportError(b.rep, diag.BindForeignTypeParam, subject,
			fmt.Sprintf("type parameter '%s' is not in scope of '%s'", e.Name, subject)).Emit()
		return b.in.ErrorType(e.Name)
	}
	diag.ReportError(b.rep, diag.BindUnknownType, subject, fmt.Sprintf("unknown type '%s'", e.Name)).Emit()
	return b.in.ErrorType(e.Name)
}

// lookupType tries prefix-qualified names from the innermost enclosing type
// outwards, then the name as written.
func (b *binder) lookupType(name, prefix string) *typeEntry {
	for p := prefix; p != ""; {
		if te, ok := b.typeNames[p+"."+name]; ok {
			return te
		}
		i := strings.LastIndexByte(p, '.')
		if i < 0 {
			break
		}
		p = p[:i]
	}
	return b.typeNames[name]
}

// scope maps type-parameter names to IDs, chained to the enclosing declaration.
type scope struct {
	parent *scope
	params map[string]tparams.ParamID
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, params: make(map[string]tparams.ParamID)}
}

func (s *scope) lookup(name string) (tparams.ParamID, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if id, ok := cur.params[name]; ok {
			return id, true
		}
	}
	return tparams.NoParamID, false
}
