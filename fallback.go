package resources

import "iter"

// FallbackSequence yields the locales probed for resources, most specific first:
//
//  1. start, or the host's current UI culture when start is nil;
//  2. its parent chain, stopping before the invariant locale, which is left
//     for step 4. Reaching the neutral locale yields the invariant locale in
//     its place and ends the walk;
//  3. the host's preferred fallback locales, minus start, start's parent and
//     the invariant locale;
//  4. the invariant locale, last, unless step 2 already produced it.
//
// With useParents false, or when start is invariant, only step 1 runs. The
// sequence holds no state, every range over it starts again from the top.
func FallbackSequence(start, neutral Locale, useParents bool, host Host) iter.Seq[Locale] {
	return func(yield func(Locale) bool) {
		start := start
		if start == nil {
			if host != nil {
				start = host.CurrentUICulture()
			}
			if start == nil {
				start = InvariantCulture()
			}
		}

		reachedNeutral := false
		lastName := ""
		current := start
		for {
			if neutral != nil && current.Name() == neutral.Name() {
				if !yield(InvariantCulture()) {
					return
				}
				reachedNeutral = true
				break
			}
			if !yield(current) {
				return
			}
			lastName = current.Name()
			if !useParents || current.IsInvariant() {
				break
			}
			current = current.Parent()
			if current == nil || current.IsInvariant() {
				break
			}
		}

		if !useParents || start.IsInvariant() {
			return
		}

		if host != nil {
			startName := start.Name()
			parentName := ""
			if parent := start.Parent(); parent != nil {
				parentName = parent.Name()
			}
			for _, preferred := range host.PreferredFallbackLocales() {
				if preferred == nil {
					continue
				}
				name := preferred.Name()
				if preferred.IsInvariant() || name == startName || name == parentName || name == lastName {
					continue
				}
				lastName = name
				if !yield(preferred) {
					return
				}
			}
		}

		if reachedNeutral {
			return
		}
		yield(InvariantCulture())
	}
}

// FallbackNames collects the names of a fallback sequence, mostly for diagnostics.
func FallbackNames(seq iter.Seq[Locale]) []string {
	var names []string
	for locale := range seq {
		names = append(names, locale.Name())
	}
	return names
}
