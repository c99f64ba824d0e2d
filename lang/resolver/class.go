package resolver

import (
	"github.com/mna/lit/lang/ast"
	"golang.org/x/exp/maps"
)

// Method mirrors one method signature recorded in a Class, enough to check
// override/final/abstract/static rules without touching the AST again.
type Method struct {
	Name       string
	Mods       ast.Modifiers
	ReturnType string
	ParamTypes []string
	DefinedIn  string // owning class name, for diagnostics
	Abstract   bool
	Overridden bool // set on a method declared with override that replaces a superclass method
}

// Field mirrors one field declaration.
type Field struct {
	Name      string
	Mods      ast.Modifiers
	Type      string
	DefinedIn string // owning class name, for inherited-vs-defined checks
}

// Class is the resolver's view of a class declaration: its own members
// plus, after resolve, the full inherited member tables (copied down from
// Super the way the runtime's class objects do).
type Class struct {
	Name    string
	Super   *Class
	Mods    ast.Modifiers // Final / Abstract / Static
	Methods map[string]*Method
	Fields  map[string]*Field
	Node    *ast.ClassStmt

	// NeedsStaticInit is set when the class declares at least one static
	// field with an initializer, telling the emitter to synthesize a
	// STATIC_INIT closure for it (run once, on first static access).
	NeedsStaticInit bool
}

func newClass(name string, super *Class, mods ast.Modifiers) *Class {
	c := &Class{
		Name:    name,
		Super:   super,
		Mods:    mods,
		Methods: make(map[string]*Method),
		Fields:  make(map[string]*Field),
	}
	if super != nil {
		c.Methods = cloneMethods(super.Methods)
		c.Fields = maps.Clone(super.Fields)
	}
	return c
}

// cloneMethods copies the method table with fresh Method records, not just
// fresh map entries, so annotating an entry in the subclass's table (the
// Overridden bit in particular) never touches the superclass's own record.
func cloneMethods(src map[string]*Method) map[string]*Method {
	dst := make(map[string]*Method, len(src))
	for k, v := range src {
		m := *v
		dst[k] = &m
	}
	return dst
}

// FindMethod walks the inheritance chain the same way the runtime class
// does, used to resolve "super.name(...)" call targets at resolve time.
func (c *Class) FindMethod(name string) *Method {
	for cur := c; cur != nil; cur = cur.Super {
		if m, ok := cur.Methods[name]; ok {
			return m
		}
		break // Methods already has the inherited set copied in
	}
	return nil
}

// IsSubclassOf reports whether c is target or a descendant of target,
// used to type-check "is" expressions against statically known classes.
func (c *Class) IsSubclassOf(target *Class) bool {
	for cur := c; cur != nil; cur = cur.Super {
		if cur == target {
			return true
		}
	}
	return false
}
