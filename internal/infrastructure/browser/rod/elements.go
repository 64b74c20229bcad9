package rod

import (
	"encoding/json"
	"fmt"

	"browser-replay/internal/domain/entity"
)

// elementsJS numbers the visible interactive elements plus short text leaves
// in document order and returns them as a JSON array.
const elementsJS = `(maxElements) => {
	const interactive = 'a, button, input, select, textarea, [role="button"], [role="link"], [onclick], [contenteditable="true"]';
	const keep = ['id', 'class', 'name', 'type', 'placeholder', 'aria-label', 'role', 'href', 'value', 'title'];

	const xpathOf = (el) => {
		if (el.id) return "//*[@id='" + el.id + "']";
		const parts = [];
		for (let n = el; n && n.nodeType === 1; n = n.parentNode) {
			let i = 1;
			for (let s = n.previousElementSibling; s; s = s.previousElementSibling) {
				if (s.nodeName === n.nodeName) i++;
			}
			parts.unshift(n.nodeName.toLowerCase() + '[' + i + ']');
		}
		return '/' + parts.join('/');
	};
	const visible = (el) => {
		const r = el.getBoundingClientRect();
		if (r.width === 0 && r.height === 0) return false;
		const st = window.getComputedStyle(el);
		return st.visibility !== 'hidden' && st.display !== 'none';
	};
	const ownText = (el) => Array.from(el.childNodes)
		.filter((n) => n.nodeType === 3)
		.map((n) => n.textContent.trim())
		.join(' ')
		.trim();

	const out = [];
	const all = document.body ? document.body.querySelectorAll('*') : [];
	for (const el of all) {
		if (out.length >= maxElements) break;
		const text = ownText(el);
		const isInteractive = el.matches(interactive);
		if (!isInteractive && (text === '' || text.length > 200)) continue;
		if (!visible(el)) continue;

		const attributes = {};
		for (const k of keep) {
			const v = el.getAttribute(k);
			if (v !== null && v !== '') attributes[k] = v;
		}
		out.push({
			index: out.length,
			xpath: xpathOf(el),
			tag_name: el.tagName.toLowerCase(),
			attributes: attributes,
			text: (isInteractive ? (el.innerText || el.value || '') : text).trim().slice(0, 200),
		});
	}
	return JSON.stringify(out);
}`

func decodeElements(raw string) (entity.ElementMap, error) {
	var list []entity.ElementDescriptor
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("decode element map: %w", err)
	}
	m := make(entity.ElementMap, len(list))
	for _, el := range list {
		m[el.Index] = el
	}
	return m, nil
}
