// Package normalize приводит артикулы и названия к каноническому ключу.
//
// Один и тот же товар в каталоге, в выгрузке маркетплейса и во вводе
// пользователя может отличаться регистром, пробелами, дефисами и
// латинскими двойниками кириллицы. Ключ используется только для
// сопоставления и никогда не показывается пользователю.
package normalize

import (
	"strings"
	"unicode"
)

// Латиница→кириллица (визуальные двойники строчных букв).
// Фолдинг выполняется после понижения регистра, поэтому 'A' и 'a'
// сводятся к одному и тому же 'а'. Применяется только к словам, где
// латиница перемешана с кириллицей: чисто латинские коды ("pm1", "xl")
// остаются латиницей и не превращаются в смешанный скрипт.
var lookalikes = map[rune]rune{
	'a': 'а', 'c': 'с', 'e': 'е', 'o': 'о', 'p': 'р', 'x': 'х', 'y': 'у',
}

// Пунктуация, которая гуляет между источниками: вырезаем целиком.
var stripped = map[rune]bool{
	'.': true, '-': true, '–': true, '—': true,
}

// Разделители: схлопываем повторы до одного символа.
var separators = map[rune]bool{
	'/': true, '_': true,
}

// Key возвращает канонический ключ для сырой строки.
//
// Шаги (по порядку): схлопывание пробельных символов (включая
// табуляцию) до одного пробела, удаление непечатаемых, трим, нижний
// регистр, ё→е, унификация \ и /, схлопывание повторных разделителей,
// вырезание точек и дефисов, фолдинг латинских двойников в словах с
// кириллицей. Функция чистая и идемпотентна: Key(Key(s)) == Key(s).
func Key(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	prevSpace := false
	var prevSep rune

	for _, r := range raw {
		// Пробельные (в том числе \t и \n) сводим к одному пробелу,
		// до проверки на печатаемость: табуляция — не мусор, а дрейф
		// форматирования между источниками
		if unicode.IsSpace(r) {
			if prevSpace {
				continue
			}
			prevSpace = true
			prevSep = 0
			b.WriteRune(' ')
			continue
		}

		// Остальные непечатаемые выкидываем
		if !unicode.IsPrint(r) {
			continue
		}

		r = unicode.ToLower(r)

		switch r {
		case 'ё':
			r = 'е'
		case '\\':
			r = '/'
		}
		if stripped[r] {
			continue
		}
		prevSpace = false

		if separators[r] {
			// Схлопываем повторные разделители ("//", "__")
			if prevSep == r {
				continue
			}
			prevSep = r
			b.WriteRune(r)
			continue
		}
		prevSep = 0

		b.WriteRune(r)
	}

	return foldLookalikes(strings.TrimSpace(b.String()))
}

// foldLookalikes заменяет латинские двойники на кириллицу в словах,
// где оба алфавита перемешаны ("Шaпкa" с латинскими 'a'). Слова без
// кириллицы не трогаем: артикул "pm1" должен остаться латиницей.
func foldLookalikes(s string) string {
	if !strings.ContainsFunc(s, isCyrillic) {
		return s
	}
	words := strings.Split(s, " ")
	for i, w := range words {
		if !strings.ContainsFunc(w, isCyrillic) {
			continue
		}
		words[i] = strings.Map(func(r rune) rune {
			if rr, ok := lookalikes[r]; ok {
				return rr
			}
			return r
		}, w)
	}
	return strings.Join(words, " ")
}

func isCyrillic(r rune) bool {
	return unicode.Is(unicode.Cyrillic, r)
}
