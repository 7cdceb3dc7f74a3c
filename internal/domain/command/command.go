// Package command implements the ds.-prefixed administrative commands. The
// session-affecting verbs call into the lifecycle service; the rest are
// simple reads and writes against the store.
package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/identity"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/session"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/settings"
)

// Prefix marks command messages.
const Prefix = "ds."

// Context carries the per-message command environment. Reply sends text back
// to the originating conversation.
type Context struct {
	ConversationID string
	SenderID       string
	IsGroup        bool
	IsOwner        bool
	Reply          func(ctx context.Context, text string) error
}

// Handler executes one command verb.
type Handler func(ctx context.Context, cmd *Context, args []string) error

// Registry maps verbs to handlers.
type Registry struct {
	settings  settings.Store
	access    identity.AccessRepository
	links     identity.LinkRepository
	bindings  identity.BindingRepository
	lifecycle *session.LifecycleService

	defaultTemperature float64

	handlers map[string]Handler
	aliases  map[string]string
}

// NewRegistry builds the command table.
func NewRegistry(
	store settings.Store,
	access identity.AccessRepository,
	links identity.LinkRepository,
	bindings identity.BindingRepository,
	lifecycle *session.LifecycleService,
	defaultTemperature float64,
) *Registry {
	r := &Registry{
		settings:           store,
		access:             access,
		links:              links,
		bindings:           bindings,
		lifecycle:          lifecycle,
		defaultTemperature: defaultTemperature,
	}
	r.handlers = map[string]Handler{
		"setup":              r.setup,
		"yo":                 r.whoami,
		"ayuda":              r.help,
		"estado":             r.status,
		"persona":            r.persona,
		"temp":               r.temperature,
		"autorizar":          r.authorizeUser,
		"desautorizar":       r.deauthorizeUser,
		"autorizar-grupo":    r.authorizeGroup,
		"desautorizar-grupo": r.deauthorizeGroup,
		"listar":             r.list,
		"link-numero":        r.link,
		"nueva-sesion":       r.newSession,
		"usar-sesion":        r.useSession,
		"cerrar-sesion":      r.closeSession,
		"listar-sesiones":    r.listSessions,
		"reset":              r.reset,
	}
	r.aliases = map[string]string{
		"h":          "ayuda",
		"s":          "estado",
		"link":       "link-numero",
		"auth":       "autorizar",
		"dauth":      "desautorizar",
		"auth-grupo": "autorizar-grupo",
		"dauth-grupo": "desautorizar-grupo",
		"nueva":      "nueva-sesion",
		"usar":       "usar-sesion",
		"cerrar":     "cerrar-sesion",
		"sesiones":   "listar-sesiones",
	}
	return r
}

// Resolve maps a raw verb through the alias table.
func (r *Registry) Resolve(verb string) string {
	if canonical, ok := r.aliases[verb]; ok {
		return canonical
	}
	return verb
}

// Open reports whether the verb may run before the sender is authorized.
// These are the verbs a new user needs to request access in the first place.
func (r *Registry) Open(verb string) bool {
	switch r.Resolve(verb) {
	case "ayuda", "yo", "link-numero", "setup":
		return true
	}
	return false
}

// Run executes a verb. Unknown verbs reply with a hint instead of erroring.
func (r *Registry) Run(ctx context.Context, cmd *Context, verb string, args []string) error {
	handler, ok := r.handlers[r.Resolve(verb)]
	if !ok {
		return cmd.Reply(ctx, "Comando no reconocido. Usa ds.ayuda.")
	}
	return handler(ctx, cmd, args)
}

func (r *Registry) requireOwner(ctx context.Context, cmd *Context) (bool, error) {
	if cmd.IsOwner {
		return true, nil
	}
	return false, cmd.Reply(ctx, "Este comando es solo para los dueños.")
}

func (r *Registry) setup(ctx context.Context, cmd *Context, args []string) error {
	raw := strings.TrimSpace(strings.Join(args, " "))
	if raw == "" {
		return cmd.Reply(ctx, "Usa: ds.setup @bot (etiqueta al bot)")
	}
	number := identity.NumericPart(strings.TrimPrefix(raw, "@"))
	if number == "" || strings.ContainsFunc(number, func(r rune) bool { return r < '0' || r > '9' }) {
		return cmd.Reply(ctx, "Número inválido. Usa: ds.setup @bot o ds.setup <numero>")
	}
	if err := r.bindings.SetBotIdentifier(ctx, cmd.ConversationID, number); err != nil {
		return err
	}
	return cmd.Reply(ctx, fmt.Sprintf("JID del bot guardado: %s\nAhora detectaré menciones correctamente.", number))
}

func (r *Registry) whoami(ctx context.Context, cmd *Context, _ []string) error {
	return cmd.Reply(ctx, "Tu JID: "+cmd.SenderID)
}

func (r *Registry) help(ctx context.Context, cmd *Context, _ []string) error {
	return cmd.Reply(ctx,
		"Comandos (prefijo ds.):\n"+
			"- ds.setup (ejecuta en cada grupo/DM nuevo)\n"+
			"- ds.yo\n"+
			"- ds.ayuda | ds.h\n"+
			"- ds.estado | ds.s\n"+
			"- ds.link-numero <jid> (vincula tus números)\n"+
			"- ds.persona <texto> (dueños)\n"+
			"- ds.temp <0-1> (dueños)\n"+
			"- ds.autorizar <jid o numero> (dueños)\n"+
			"- ds.desautorizar <jid o numero> (dueños)\n"+
			"- ds.autorizar-grupo [aqui|jid] (dueños)\n"+
			"- ds.desautorizar-grupo [aqui|jid] (dueños)\n"+
			"- ds.listar\n"+
			"- ds.nueva-sesion <nombre>\n"+
			"- ds.usar-sesion <nombre>\n"+
			"- ds.cerrar-sesion\n"+
			"- ds.listar-sesiones\n"+
			"- ds.reset")
}

func (r *Registry) status(ctx context.Context, cmd *Context, _ []string) error {
	persona, err := r.settings.Get(ctx, settings.KeyPersona)
	if err != nil {
		return err
	}
	if persona == "" {
		persona = "sin definir"
	}
	if len(persona) > 80 {
		persona = persona[:80] + "..."
	}
	temp, err := r.settings.Get(ctx, settings.KeyTemperature)
	if err != nil {
		return err
	}
	if temp == "" {
		temp = strconv.FormatFloat(r.defaultTemperature, 'g', -1, 64)
	}
	activeName := "ninguna"
	active, err := r.lifecycle.FindActive(ctx, cmd.ConversationID)
	switch {
	case err == nil:
		activeName = active.Name
	case errors.Is(err, session.ErrNoActiveSession):
	default:
		return err
	}
	return cmd.Reply(ctx, fmt.Sprintf("Estado:\nPersona: %s\nTemp: %s\nSesión activa: %s\nInactividad: %s",
		persona, temp, activeName, r.lifecycle.InactivityThreshold()))
}

func (r *Registry) persona(ctx context.Context, cmd *Context, args []string) error {
	if ok, err := r.requireOwner(ctx, cmd); !ok {
		return err
	}
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return cmd.Reply(ctx, "Usa: ds.persona <nuevo texto>")
	}
	if err := r.settings.Set(ctx, settings.KeyPersona, text); err != nil {
		return err
	}
	return cmd.Reply(ctx, "Persona actualizada.")
}

func (r *Registry) temperature(ctx context.Context, cmd *Context, args []string) error {
	if ok, err := r.requireOwner(ctx, cmd); !ok {
		return err
	}
	if len(args) == 0 {
		return cmd.Reply(ctx, "Usa: ds.temp <numero entre 0 y 1>")
	}
	val, err := strconv.ParseFloat(args[0], 64)
	if err != nil || val < 0 || val > 1 {
		return cmd.Reply(ctx, "Usa: ds.temp <numero entre 0 y 1>")
	}
	if err := r.settings.Set(ctx, settings.KeyTemperature, strconv.FormatFloat(val, 'g', -1, 64)); err != nil {
		return err
	}
	return cmd.Reply(ctx, fmt.Sprintf("Temperatura guardada: %g", val))
}

func (r *Registry) authorizeUser(ctx context.Context, cmd *Context, args []string) error {
	if ok, err := r.requireOwner(ctx, cmd); !ok {
		return err
	}
	raw := strings.TrimSpace(strings.Join(args, " "))
	if raw == "" {
		return cmd.Reply(ctx, "Usa: ds.autorizar <jid o numero>\nObtén tu JID con: ds.yo")
	}
	jid := identity.ToJID(raw)
	if err := r.access.AuthorizeUser(ctx, jid); err != nil {
		return err
	}
	return cmd.Reply(ctx, "Autorizado "+identity.Display(jid))
}

func (r *Registry) deauthorizeUser(ctx context.Context, cmd *Context, args []string) error {
	if ok, err := r.requireOwner(ctx, cmd); !ok {
		return err
	}
	raw := strings.TrimSpace(strings.Join(args, " "))
	if raw == "" {
		return cmd.Reply(ctx, "Usa: ds.desautorizar <jid o numero>")
	}
	jid := identity.ToJID(raw)
	if err := r.access.DeauthorizeUser(ctx, jid); err != nil {
		return err
	}
	return cmd.Reply(ctx, "Desautorizado "+identity.Display(jid))
}

func (r *Registry) resolveGroupTarget(cmd *Context, args []string) string {
	target := strings.TrimSpace(strings.Join(args, " "))
	if target == "" && cmd.IsGroup {
		target = "aqui"
	}
	if target == "aqui" {
		return cmd.ConversationID
	}
	if target == "" {
		return ""
	}
	return identity.ToGroupJID(target)
}

func (r *Registry) authorizeGroup(ctx context.Context, cmd *Context, args []string) error {
	if ok, err := r.requireOwner(ctx, cmd); !ok {
		return err
	}
	gid := r.resolveGroupTarget(cmd, args)
	if gid == "" {
		return cmd.Reply(ctx, "Usa: ds.autorizar-grupo [aqui|jid]")
	}
	if err := r.access.AuthorizeGroup(ctx, gid); err != nil {
		return err
	}
	return cmd.Reply(ctx, "Grupo autorizado: "+identity.Display(gid))
}

func (r *Registry) deauthorizeGroup(ctx context.Context, cmd *Context, args []string) error {
	if ok, err := r.requireOwner(ctx, cmd); !ok {
		return err
	}
	gid := r.resolveGroupTarget(cmd, args)
	if gid == "" {
		return cmd.Reply(ctx, "Usa: ds.desautorizar-grupo [aqui|jid]")
	}
	if err := r.access.DeauthorizeGroup(ctx, gid); err != nil {
		return err
	}
	return cmd.Reply(ctx, "Grupo desautorizado: "+identity.Display(gid))
}

func (r *Registry) list(ctx context.Context, cmd *Context, _ []string) error {
	users, err := r.access.ListUsers(ctx)
	if err != nil {
		return err
	}
	groups, err := r.access.ListGroups(ctx)
	if err != nil {
		return err
	}
	return cmd.Reply(ctx, fmt.Sprintf("Autorizados:\nUsuarios: %s\nGrupos: %s",
		displayList(users), displayList(groups)))
}

func (r *Registry) link(ctx context.Context, cmd *Context, args []string) error {
	target := strings.TrimSpace(strings.Join(args, " "))
	if target == "" {
		return cmd.Reply(ctx, "Usa: ds.link-numero <jid o numero a vincular>")
	}
	linked := identity.ToJID(target)
	if err := r.links.Link(ctx, cmd.SenderID, linked); err != nil {
		return err
	}
	return cmd.Reply(ctx, fmt.Sprintf("Números vinculados: %s y %s\nAhora ambos números tendrán los mismos permisos.",
		identity.Display(cmd.SenderID), identity.Display(linked)))
}

func (r *Registry) newSession(ctx context.Context, cmd *Context, args []string) error {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		name = session.DefaultName
	}
	if _, err := r.lifecycle.CreateNamed(ctx, cmd.ConversationID, name); err != nil {
		return err
	}
	return cmd.Reply(ctx, "Sesión activa: "+name)
}

func (r *Registry) useSession(ctx context.Context, cmd *Context, args []string) error {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		return cmd.Reply(ctx, "Usa: ds.usar-sesion <nombre>")
	}
	_, err := r.lifecycle.ActivateNamed(ctx, cmd.ConversationID, name)
	if errors.Is(err, session.ErrSessionNotFound) {
		return cmd.Reply(ctx, "No existe esa sesión.")
	}
	if err != nil {
		return err
	}
	return cmd.Reply(ctx, "Sesión activa: "+name)
}

func (r *Registry) closeSession(ctx context.Context, cmd *Context, _ []string) error {
	active, err := r.lifecycle.FindActive(ctx, cmd.ConversationID)
	if errors.Is(err, session.ErrNoActiveSession) {
		return cmd.Reply(ctx, "No hay sesión activa.")
	}
	if err != nil {
		return err
	}
	if err := r.lifecycle.Close(ctx, active.ID); err != nil {
		return err
	}
	return cmd.Reply(ctx, "Sesión cerrada. Usa ds.usar-sesion para reabrir.")
}

func (r *Registry) listSessions(ctx context.Context, cmd *Context, _ []string) error {
	sessions, err := r.lifecycle.List(ctx, cmd.ConversationID)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return cmd.Reply(ctx, "No hay sesiones guardadas.")
	}
	lines := make([]string, 0, len(sessions))
	for _, s := range sessions {
		marker := "[cerrada]"
		if s.Active {
			marker = "[activa]"
		}
		lines = append(lines, fmt.Sprintf("%s %s (visto %s)", marker, s.Name, s.LastActiveAt.Format("2006-01-02 15:04")))
	}
	return cmd.Reply(ctx, strings.Join(lines, "\n"))
}

func (r *Registry) reset(ctx context.Context, cmd *Context, _ []string) error {
	active, err := r.lifecycle.FindActive(ctx, cmd.ConversationID)
	if errors.Is(err, session.ErrNoActiveSession) {
		return cmd.Reply(ctx, "No hay sesión activa.")
	}
	if err != nil {
		return err
	}
	if err := r.lifecycle.ResetContent(ctx, active.ID); err != nil {
		return err
	}
	return cmd.Reply(ctx, "Contexto de la sesión activa reiniciado.")
}

func displayList(ids []string) string {
	if len(ids) == 0 {
		return "ninguno"
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, identity.Display(id))
	}
	return strings.Join(out, ", ")
}
