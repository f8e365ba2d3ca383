package diag

import (
	"strings"
)

// Message templates. The wording is part of the tool's observable contract: tests and
// editor integrations match on it.

func InvalidModuleName(name string) string { return "Invalid module qualified name: " + name }

func InvalidBeanName(name string) string { return "Invalid bean name: " + name }

func DuplicateBean(bean, module string) string {
	return "Multiple beans with name " + bean + " exist in module " + module
}

func BeanConflictsWithModule(module string) string {
	return "Bean is conflicting with module: " + module
}

func RequiredConflictsWithOptional(socket string) string {
	return "Required socket " + socket + " is conflicting with an optional socket with the same name"
}

func OptionalConflictsWithRequired(socket string) string {
	return "Optional socket " + socket + " is conflicting with a required socket with the same name"
}

func AbstractBean(typ string) string {
	return "A bean must be a concrete type: " + typ + " is an interface"
}

func UnexportedBean(typ string) string { return "A bean type must be exported: " + typ }

func PrototypeNotPointer(typ string) string {
	return "A prototype bean must have a pointer type: " + typ
}

func NoConstructor(bean string) string { return "No usable constructor found for bean " + bean }

func NoInjectConstructor(bean string) string {
	return "Multiple constructors found in bean " + bean + ", one of them must be marked as injection constructor"
}

func MultipleInjectConstructors(bean string) string {
	return "Multiple constructors are marked as injection constructor in bean " + bean
}

func InvalidSocketBean(typ string) string {
	return "A socket bean must declare exactly one method with at most one parameter returning " + typ
}

const InvalidSetter = "Invalid socket method which should be a single-argument setter method, socket will be ignored"

const UnwiredSocketBean = "Ignoring socket bean which is not wired"

func NoBeanFound(socket, typ, module string) string {
	return "No bean was found matching required socket " + socket + " of type " + typ +
		", consider defining a bean or a socket bean matching the socket in module " + module
}

// Candidate is a bean listed in a conflict message.
type Candidate struct {
	Name string
	Type string
}

func MultipleBeansMatching(socket, module, wireInto string, candidates []Candidate) string {
	var sb strings.Builder
	sb.WriteString("Multiple beans matching socket ")
	sb.WriteString(socket)
	sb.WriteString(" were found\n")
	for _, c := range candidates {
		sb.WriteString("  - ")
		sb.WriteString(c.Name)
		sb.WriteString(" of type ")
		sb.WriteString(c.Type)
		sb.WriteString("\n")
	}
	sb.WriteString("\n  Consider specifying an explicit wiring in module ")
	sb.WriteString(module)
	sb.WriteString(" (eg. wires: [{beans: [")
	if len(candidates) > 0 {
		sb.WriteString(candidates[0].Name)
	}
	sb.WriteString("], into: ")
	sb.WriteString(wireInto)
	sb.WriteString("}])")
	return sb.String()
}

func UnknownBean(bean, module string) string {
	return "There's no bean named " + bean + " in module " + module
}

func UnknownSocket(socket, module string) string {
	return "There's no socket named " + socket + " in module " + module
}

func NotWirable(bean, socket, typ string) string {
	return "Bean " + bean + " can't be wired into socket " + socket + " of type " + typ
}

func SingleSocketMultipleBeans(socket string) string {
	return "Socket " + socket + " can only be wired to one bean"
}

func SocketWiredTwice(socket string) string {
	return "Socket " + socket + " is wired multiple times"
}

func FaultyComponent(module, component string) string {
	return "Module " + module + " can't be generated because component module " + component + " is faulty"
}

func ComponentNotFound(component string) string {
	return "Component module " + component + " could not be found"
}

func ImportCycle(module string, path []string) string {
	return "Module " + module + " is part of an import cycle: " + strings.Join(path, " -> ")
}

func CycleHeader(bean, module string) string {
	return "Bean " + bean + " forms a cycle in module " + module
}
