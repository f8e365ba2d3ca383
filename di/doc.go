// Package di is the runtime library linked by modules generated with modwire.
//
// A generated module embeds a *Module and registers one holder per bean:
//
//   - Singleton[T]: one instance, created on first use or when the module starts,
//     destroyed when it stops.
//   - Prototype[E]: a new *E on every Get. Instances are tracked weakly and the ones still
//     reachable are destroyed when the module stops.
//
// Each bean records itself on the module's creation stack the first time it is actually
// instantiated. Since a bean's create function pulls its dependencies, the stack is in
// depth-first first-use order, and Stop destroys beans in exactly the reverse order.
//
// Component modules are singleton beans of the module importing them: creating the bean
// links and starts the component, destroying it stops the component.
//
// Link-time values come from two places: the sockets struct passed to the generated
// constructor, checked with RequireSockets, and a Registry holding overrides for beans
// declared overridable. An override is used verbatim; the bean's create, init and destroy
// steps are skipped but the bean is still recorded on the creation stack.
//
// Import
//
//	"github.com/sghaida/modwire/di"
package di
