package chunker

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/custodia-labs/vigil/internal/core/domain"
)

// unit is one top-level statement before coalescing. Rows are 0-based.
type unit struct {
	start int
	end   int
	kind  domain.ChunkKind
	name  string

	// isolated globals never merge with neighbouring globals.
	isolated bool
}

// mainGuardName names the chunk holding a Python entry-point guard.
const mainGuardName = "__main__"

// pythonRules classifies Python module children.
type pythonRules struct{}

func (pythonRules) classify(node *sitter.Node, src []byte) (unit, bool) {
	u := unit{
		start: int(node.StartPoint().Row),
		end:   endRow(node),
		kind:  domain.ChunkKindGlobal,
	}

	switch node.Type() {
	case "comment":
		return unit{}, false
	case "function_definition", "class_definition", "decorated_definition":
		u.kind, u.name = pythonDefinition(node, src)
	case "if_statement":
		if isMainGuard(node, src) {
			u.name = mainGuardName
			u.isolated = true
			break
		}
		if def := wrappedDefinition(node); def != nil {
			u.kind, u.name = pythonDefinition(def, src)
		}
	case "try_statement", "with_statement":
		if def := wrappedDefinition(node); def != nil {
			u.kind, u.name = pythonDefinition(def, src)
		}
	}
	return u, true
}

// pythonDefinition returns the kind and name of a definition node,
// looking through decorators.
func pythonDefinition(node *sitter.Node, src []byte) (domain.ChunkKind, string) {
	if node.Type() == "decorated_definition" {
		if inner := node.ChildByFieldName("definition"); inner != nil {
			node = inner
		}
	}
	kind := domain.ChunkKindFunction
	if node.Type() == "class_definition" {
		kind = domain.ChunkKindClass
	}
	return kind, fieldContent(node, "name", src)
}

// wrappedDefinition finds the first definition directly inside the blocks
// of a compound statement. It does not descend into definitions.
func wrappedDefinition(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "function_definition", "class_definition", "decorated_definition":
			return child
		case "block", "elif_clause", "else_clause", "except_clause", "finally_clause":
			if def := wrappedDefinition(child); def != nil {
				return def
			}
		}
	}
	return nil
}

// isMainGuard reports whether node is `if __name__ == "__main__":`.
func isMainGuard(node *sitter.Node, src []byte) bool {
	cond := node.ChildByFieldName("condition")
	if cond == nil {
		return false
	}
	text := strings.ReplaceAll(cond.Content(src), "'", `"`)
	text = strings.Join(strings.Fields(text), "")
	return text == `__name__=="__main__"` || text == `"__main__"==__name__`
}

// javascriptRules classifies JavaScript program children.
type javascriptRules struct{}

func (javascriptRules) classify(node *sitter.Node, src []byte) (unit, bool) {
	u := unit{
		start: int(node.StartPoint().Row),
		end:   endRow(node),
		kind:  domain.ChunkKindGlobal,
	}

	switch node.Type() {
	case "comment", "hash_bang_line":
		return unit{}, false
	case "function_declaration", "generator_function_declaration":
		u.kind = domain.ChunkKindFunction
		u.name = fieldContent(node, "name", src)
	case "class_declaration":
		u.kind = domain.ChunkKindClass
		u.name = fieldContent(node, "name", src)
	case "export_statement":
		if decl := node.ChildByFieldName("declaration"); decl != nil {
			switch decl.Type() {
			case "function_declaration", "generator_function_declaration":
				u.kind = domain.ChunkKindFunction
				u.name = fieldContent(decl, "name", src)
			case "class_declaration":
				u.kind = domain.ChunkKindClass
				u.name = fieldContent(decl, "name", src)
			}
			break
		}
		if value := node.ChildByFieldName("value"); value != nil {
			switch value.Type() {
			case "function", "function_expression", "generator_function":
				u.kind = domain.ChunkKindFunction
				u.name = "default"
			case "class":
				u.kind = domain.ChunkKindClass
				u.name = "default"
			}
		}
	}
	return u, true
}

// fieldContent returns the source text of a named field, or "".
func fieldContent(node *sitter.Node, field string, src []byte) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return child.Content(src)
}

// endRow returns the last row a node occupies. A node ending at column 0
// ends on the previous row.
func endRow(node *sitter.Node) int {
	start := int(node.StartPoint().Row)
	end := node.EndPoint()
	row := int(end.Row)
	if end.Column == 0 && row > start {
		row--
	}
	return row
}
