package inventory

import (
	"strings"

	lru "github.com/hashicorp/golang-lru"

	"rogue_core/config"
	"rogue_core/loot"
	"rogue_core/randgen"
)

// Query is the inventory expression engine: a recursive-descent parser over
// `IDENT OP VALUE` predicates joined by and/or, composite sorting, trigram
// fuzzy search, a bounded LRU result cache, and saved searches.
type Query struct {
	entries *Entries
	tags    *Tags
	defs    *loot.DefRegistry
	pool    *loot.Pool

	lastError string

	cache       *lru.Cache
	cacheHits   uint
	cacheMisses uint

	trigram      map[int]*[64]uint32
	trigramDirty map[int]bool
	trigramBuilt bool

	saved []SavedSearch

	// OnSavedChange fires after the saved-search set mutates so the save
	// component can be marked dirty.
	OnSavedChange func()
}

const queryCacheMax = 32

// NewQuery wires the engine over the aggregate, tags, defs, and pool.
func NewQuery(entries *Entries, tags *Tags, defs *loot.DefRegistry, pool *loot.Pool) *Query {
	c, _ := lru.New(queryCacheMax)
	return &Query{
		entries:      entries,
		tags:         tags,
		defs:         defs,
		pool:         pool,
		cache:        c,
		trigram:      make(map[int]*[64]uint32),
		trigramDirty: make(map[int]bool),
	}
}

// LastError returns the last parse error, "" when the last parse was clean.
func (q *Query) LastError() string { return q.lastError }

// ---- Lexer ----

type tokenType int

const (
	tkEOF tokenType = iota
	tkIdent
	tkInt
	tkOp
	tkLParen
	tkRParen
	tkString
)

type token struct {
	typ  tokenType
	text string
	ival int
	op   string
}

type lexer struct {
	s   string
	pos int
	cur token
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isIdent(c byte) bool {
	return isIdentStart(c) || c == '-' || (c >= '0' && c <= '9')
}

func (l *lexer) next() {
	for l.pos < len(l.s) && l.s[l.pos] <= ' ' {
		l.pos++
	}
	if l.pos >= len(l.s) {
		l.cur = token{typ: tkEOF}
		return
	}
	c := l.s[l.pos]
	switch {
	case c == '(':
		l.pos++
		l.cur = token{typ: tkLParen}
	case c == ')':
		l.pos++
		l.cur = token{typ: tkRParen}
	case c == '"':
		l.pos++
		start := l.pos
		for l.pos < len(l.s) && l.s[l.pos] != '"' {
			l.pos++
		}
		l.cur = token{typ: tkString, text: l.s[start:l.pos]}
		if l.pos < len(l.s) {
			l.pos++
		}
	case isIdentStart(c):
		start := l.pos
		for l.pos < len(l.s) && isIdent(l.s[l.pos]) {
			l.pos++
		}
		l.cur = token{typ: tkIdent, text: strings.ToLower(l.s[start:l.pos])}
	case c >= '0' && c <= '9':
		v := 0
		for l.pos < len(l.s) && l.s[l.pos] >= '0' && l.s[l.pos] <= '9' {
			v = v*10 + int(l.s[l.pos]-'0')
			l.pos++
		}
		l.cur = token{typ: tkInt, ival: v}
	default:
		if l.pos+1 < len(l.s) {
			two := l.s[l.pos : l.pos+2]
			if two == ">=" || two == "<=" || two == "!=" {
				l.pos += 2
				l.cur = token{typ: tkOp, op: two}
				return
			}
		}
		if c == '>' || c == '<' || c == '=' || c == '~' {
			l.pos++
			l.cur = token{typ: tkOp, op: string(c)}
			return
		}
		l.pos++
		l.cur = token{typ: tkEOF}
	}
}

// ---- AST ----

type predField int

const (
	predRarity predField = iota
	predAffixWeight
	predTag
	predEquipSlot
	predQuality
	predDurPct
	predQty
	predCategory
)

type cmpOp int

const (
	cmpEQ cmpOp = iota
	cmpNE
	cmpLT
	cmpLE
	cmpGT
	cmpGE
	cmpSubstr
)

type predicate struct {
	field  predField
	op     cmpOp
	intVal int
	strVal string
}

type node struct {
	isPred      bool
	pred        predicate
	left, right *node
	isOr        bool
}

func matchIdent(s string) (predField, bool) {
	switch s {
	case "rarity":
		return predRarity, true
	case "affix_weight":
		return predAffixWeight, true
	case "tag":
		return predTag, true
	case "equip_slot":
		return predEquipSlot, true
	case "quality":
		return predQuality, true
	case "durability_pct":
		return predDurPct, true
	case "qty", "quantity":
		return predQty, true
	case "category":
		return predCategory, true
	}
	return 0, false
}

func opFrom(s string) cmpOp {
	switch s {
	case "!=":
		return cmpNE
	case "<":
		return cmpLT
	case "<=":
		return cmpLE
	case ">":
		return cmpGT
	case ">=":
		return cmpGE
	case "~":
		return cmpSubstr
	}
	return cmpEQ
}

func (q *Query) parseFactor(l *lexer) *node {
	if l.cur.typ == tkLParen {
		l.next()
		e := q.parseExpr(l)
		if l.cur.typ == tkRParen {
			l.next()
		} else {
			q.lastError = "missing closing parenthesis"
		}
		return e
	}
	if l.cur.typ == tkIdent {
		f, ok := matchIdent(l.cur.text)
		if !ok {
			q.lastError = "unknown field: " + l.cur.text
			l.next()
			return nil
		}
		l.next()
		if l.cur.typ != tkOp {
			q.lastError = "expected operator"
			return nil
		}
		p := predicate{field: f, op: opFrom(l.cur.op)}
		l.next()
		switch l.cur.typ {
		case tkInt:
			p.intVal = l.cur.ival
			l.next()
		case tkIdent, tkString:
			p.strVal = l.cur.text
			l.next()
		default:
			q.lastError = "expected value"
			return nil
		}
		return &node{isPred: true, pred: p}
	}
	return nil
}

func (q *Query) parseTerm(l *lexer) *node {
	left := q.parseFactor(l)
	for l.cur.typ == tkIdent && l.cur.text == "and" {
		l.next()
		right := q.parseFactor(l)
		left = &node{left: left, right: right}
	}
	return left
}

func (q *Query) parseExpr(l *lexer) *node {
	left := q.parseTerm(l)
	for l.cur.typ == tkIdent && l.cur.text == "or" {
		l.next()
		right := q.parseTerm(l)
		left = &node{left: left, right: right, isOr: true}
	}
	return left
}

func (q *Query) parse(expr string) *node {
	q.lastError = ""
	l := &lexer{s: expr}
	l.next()
	return q.parseExpr(l)
}

// ---- Evaluation ----

func compareInt(lhs, rhs int, op cmpOp) bool {
	switch op {
	case cmpEQ:
		return lhs == rhs
	case cmpNE:
		return lhs != rhs
	case cmpLT:
		return lhs < rhs
	case cmpLE:
		return lhs <= rhs
	case cmpGT:
		return lhs > rhs
	case cmpGE:
		return lhs >= rhs
	}
	return false
}

func containsCI(hay, needle string) bool {
	return strings.Contains(strings.ToLower(hay), strings.ToLower(needle))
}

// equipSlotMatchesCategory is the heuristic slot-name mapping: weapon slot
// names match weapons, armor-ish names match armor, everything else misc.
func equipSlotMatchesCategory(slot string, category loot.ItemCategory) bool {
	if containsCI(slot, "weapon") {
		return category == loot.CategoryWeapon
	}
	for _, n := range []string{"armor", "helm", "chest", "legs", "ring", "amulet", "belt", "cloak"} {
		if containsCI(slot, n) {
			return category == loot.CategoryArmor
		}
	}
	return category == loot.CategoryMisc
}

// anyInstance applies a predicate over the active instances of a def with
// ANY semantics: true if at least one instance satisfies it.
func (q *Query) anyInstance(defIndex int, fn func(slot int, it *loot.ItemInstance) bool) bool {
	for i := 0; i < q.pool.Cap(); i++ {
		it := q.pool.At(i)
		if it == nil || it.DefIndex != defIndex {
			continue
		}
		if fn(i, it) {
			return true
		}
	}
	return false
}

func (q *Query) evalPredicate(p *predicate, defIndex int) bool {
	d := q.defs.At(defIndex)
	switch p.field {
	case predQty:
		qty := q.entries.Quantity(defIndex)
		if qty > 0x7fffffff {
			qty = 0x7fffffff
		}
		return compareInt(int(qty), p.intVal, p.op)
	case predRarity:
		return d != nil && compareInt(d.Rarity, p.intVal, p.op)
	case predCategory:
		if d == nil {
			return false
		}
		if p.op == cmpSubstr && p.strVal != "" {
			return containsCI(d.Name, p.strVal)
		}
		cat := -1
		if p.strVal != "" {
			cat = int(loot.CategoryFromString(p.strVal))
		}
		if cat < 0 {
			cat = p.intVal
		}
		return compareInt(int(d.Category), cat, p.op)
	case predTag:
		switch p.op {
		case cmpEQ:
			return q.tags.Has(defIndex, p.strVal)
		case cmpNE:
			return !q.tags.Has(defIndex, p.strVal)
		case cmpSubstr:
			return q.tags.HasSubstring(defIndex, p.strVal)
		}
		return false
	case predEquipSlot:
		return d != nil && equipSlotMatchesCategory(p.strVal, d.Category)
	case predAffixWeight:
		return d != nil && q.anyInstance(defIndex, func(slot int, _ *loot.ItemInstance) bool {
			return compareInt(q.pool.TotalAffixWeight(slot), p.intVal, p.op)
		})
	case predQuality:
		return d != nil && q.anyInstance(defIndex, func(_ int, it *loot.ItemInstance) bool {
			return compareInt(it.Quality, p.intVal, p.op)
		})
	case predDurPct:
		return d != nil && q.anyInstance(defIndex, func(_ int, it *loot.ItemInstance) bool {
			if it.DurabilityMax <= 0 {
				return false
			}
			return compareInt(it.DurabilityCur*100/it.DurabilityMax, p.intVal, p.op)
		})
	}
	return false
}

func (q *Query) evalNode(n *node, defIndex int) bool {
	if n == nil {
		return true
	}
	if n.isPred {
		return q.evalPredicate(&n.pred, defIndex)
	}
	l := q.evalNode(n.left, defIndex)
	r := q.evalNode(n.right, defIndex)
	if n.isOr {
		return l || r
	}
	return l && r
}

// Execute parses and evaluates an expression against every held definition
// in ascending def order. Failed parses return no matches without aborting;
// the error is retained in LastError.
func (q *Query) Execute(expr string, cap int) []int {
	if expr == "" || cap <= 0 {
		return nil
	}
	root := q.parse(expr)
	if q.lastError != "" {
		return nil
	}
	var out []int
	for di := 0; di < config.InvMaxEntries && len(out) < cap; di++ {
		if q.entries.Quantity(di) == 0 {
			continue
		}
		if q.evalNode(root, di) {
			out = append(out, di)
		}
	}
	return out
}

// ExecuteCached serves results from the LRU cache keyed on the expression
// hash; misses fall through to Execute and populate the cache.
func (q *Query) ExecuteCached(expr string, cap int) []int {
	if expr == "" {
		return nil
	}
	key := randgen.HashString(expr)
	if v, ok := q.cache.Get(key); ok {
		q.cacheHits++
		cached := v.([]int)
		if len(cached) > cap {
			cached = cached[:cap]
		}
		return append([]int(nil), cached...)
	}
	q.cacheMisses++
	limit := cap
	if limit > 64 {
		limit = 64
	}
	res := q.Execute(expr, limit)
	q.cache.Add(key, append([]int(nil), res...))
	return res
}

// CacheStats returns (hits, misses).
func (q *Query) CacheStats() (uint, uint) { return q.cacheHits, q.cacheMisses }

// InvalidateCache drops every cached result.
func (q *Query) InvalidateCache() { q.cache.Purge() }

// OnInstanceMutation marks the mutated instance's definition dirty in the
// fuzzy index and invalidates the result cache. Wire this to the pool's
// mutation hook.
func (q *Query) OnInstanceMutation(slot int) {
	if it := q.pool.At(slot); it != nil {
		q.trigramDirty[it.DefIndex] = true
	}
	q.InvalidateCache()
}
