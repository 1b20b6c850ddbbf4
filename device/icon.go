package device

// SelectIcon returns the largest icon that does not exceed the given
// constraints, skipping entries with an empty URL (spec §4.2 "Icon
// selection"). Any constraint left at its zero value is not enforced.
func (d *Device) SelectIcon(mimetype string, maxWidth, maxHeight, maxDepth int) (*Icon, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var best *Icon
	for _, icon := range d.icons {
		if icon.URL == "" {
			continue
		}
		if mimetype != "" && icon.Mimetype != mimetype {
			continue
		}
		if maxWidth > 0 && icon.Width > maxWidth {
			continue
		}
		if maxHeight > 0 && icon.Height > maxHeight {
			continue
		}
		if maxDepth > 0 && icon.Depth > maxDepth {
			continue
		}
		if best == nil || icon.Width*icon.Height > best.Width*best.Height {
			best = icon
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}
