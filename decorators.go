package resources

// LookupHook observes and may rewrite lookups made through WrapLookupWithHooks.
type LookupHook interface {
	BeforeLookup(ctx *LookupHookContext)
	AfterLookup(ctx *LookupHookContext)
}

// LookupHookContext carries one lookup through the hook chain. Before hooks
// may change Locale and Name; after hooks may change Value, Found and Error.
type LookupHookContext struct {
	Locale   Locale
	Name     string
	Object   bool
	Value    any
	Found    bool
	Error    error
	Metadata map[string]any
}

func (ctx *LookupHookContext) ensureMetadata() {
	if ctx.Metadata == nil {
		ctx.Metadata = make(map[string]any)
	}
}

func (ctx *LookupHookContext) SetMetadata(key string, value any) {
	if ctx == nil || key == "" {
		return
	}
	ctx.ensureMetadata()
	ctx.Metadata[key] = value
}

func (ctx *LookupHookContext) MetadataValue(key string) (any, bool) {
	if ctx == nil || ctx.Metadata == nil {
		return nil, false
	}
	val, ok := ctx.Metadata[key]
	return val, ok
}

type LookupHookFuncs struct {
	Before func(ctx *LookupHookContext)
	After  func(ctx *LookupHookContext)
}

func (h LookupHookFuncs) BeforeLookup(ctx *LookupHookContext) {
	if h.Before != nil {
		h.Before(ctx)
	}
}

func (h LookupHookFuncs) AfterLookup(ctx *LookupHookContext) {
	if h.After != nil {
		h.After(ctx)
	}
}

// MissingResourceHook calls fn for every lookup that found nothing.
func MissingResourceHook(fn func(name string, locale Locale)) LookupHook {
	return LookupHookFuncs{
		After: func(ctx *LookupHookContext) {
			if fn != nil && ctx.Error == nil && !ctx.Found {
				fn(ctx.Name, ctx.Locale)
			}
		},
	}
}

var _ Lookup = &HookedLookup{}

type HookedLookup struct {
	next  Lookup
	hooks []LookupHook
}

func WrapLookupWithHooks(next Lookup, hooks ...LookupHook) Lookup {
	if next == nil || len(hooks) == 0 {
		return next
	}

	filtered := make([]LookupHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}

		filtered = append(filtered, hook)
	}

	if len(filtered) == 0 {
		return next
	}

	return &HookedLookup{next: next, hooks: filtered}
}

func (l *HookedLookup) GetString(name string, locale Locale) (string, bool, error) {
	ctx := l.run(name, locale, false)
	if ctx.Error != nil || !ctx.Found {
		return "", false, ctx.Error
	}
	str, ok := ctx.Value.(string)
	if !ok {
		return "", false, &Error{Kind: ErrTypeMismatch, Op: "lookup", Name: ctx.Name, Offset: -1, Detail: "hook replaced string result"}
	}
	return str, true, nil
}

func (l *HookedLookup) GetObject(name string, locale Locale) (any, bool, error) {
	ctx := l.run(name, locale, true)
	if ctx.Error != nil || !ctx.Found {
		return nil, false, ctx.Error
	}
	return ctx.Value, true, nil
}

func (l *HookedLookup) run(name string, locale Locale, object bool) *LookupHookContext {
	ctx := &LookupHookContext{
		Locale: locale,
		Name:   name,
		Object: object,
	}

	for _, hook := range l.hooks {
		hook.BeforeLookup(ctx)
	}

	if object {
		ctx.Value, ctx.Found, ctx.Error = l.next.GetObject(ctx.Name, ctx.Locale)
	} else {
		var str string
		str, ctx.Found, ctx.Error = l.next.GetString(ctx.Name, ctx.Locale)
		if ctx.Found {
			ctx.Value = str
		}
	}

	for _, hook := range l.hooks {
		hook.AfterLookup(ctx)
	}

	return ctx
}
