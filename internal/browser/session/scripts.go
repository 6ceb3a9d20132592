// internal/browser/session/scripts.go
package session

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// Page-side helpers. Each is a function expression invoked through jsCall with JSON
// encoded arguments, so selectors and values never need manual escaping.
const (
	jsClear = `(selector) => {
	const el = document.querySelector(selector);
	if (!el || el.disabled || el.readOnly) return false;
	el.focus();
	el.value = '';
	el.dispatchEvent(new Event('input', { bubbles: true }));
	return true;
}`

	// The prototype setter bypasses framework value trackers that ignore plain assignment.
	jsAssign = `(selector, value) => {
	const el = document.querySelector(selector);
	if (!el) return false;
	el.focus();
	const proto = Object.getPrototypeOf(el);
	const desc = Object.getOwnPropertyDescriptor(proto, 'value');
	if (desc && desc.set) { desc.set.call(el, value); } else { el.value = value; }
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

	jsClick = `(selector) => {
	const el = document.querySelector(selector);
	if (!el || typeof el.click !== 'function') return false;
	el.click();
	return true;
}`

	jsScrollCenter = `(selector) => {
	const el = document.querySelector(selector);
	if (!el) return false;
	el.scrollIntoView({ behavior: 'auto', block: 'center' });
	return true;
}`

	jsMarkByText = `(candidates, keywords, attr) => {
	const visible = (el) => {
		const style = window.getComputedStyle(el);
		if (style.visibility === 'hidden' || style.display === 'none') return false;
		const rect = el.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	};
	for (const el of document.querySelectorAll('[' + attr + ']')) el.removeAttribute(attr);
	for (const el of document.querySelectorAll(candidates)) {
		if (!visible(el)) continue;
		const text = (el.innerText || el.value || '').trim().toLowerCase();
		if (keywords.some((k) => k && text.includes(k))) {
			el.setAttribute(attr, '1');
			return true;
		}
	}
	return false;
}`

	jsHasElement = `(selector) => document.querySelector(selector) !== null`

	jsVisibleText = `() => (document.body ? document.body.innerText : '')`
)

// jsCall renders fn applied to args as an expression.
func jsCall(fn string, args ...any) (string, error) {
	encoded := make([]string, len(args))
	for i, a := range args {
		b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("failed to encode script argument %d: %w", i, err)
		}
		encoded[i] = string(b)
	}
	return "(" + fn + ")(" + strings.Join(encoded, ", ") + ")", nil
}
