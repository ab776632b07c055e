package lexicon

// keywords are the reserved words of the target language plus the two
// identifiers every translation unit spells ("main", "include").
var keywords = []string{
	"alignas", "alignof", "and", "and_eq", "asm", "auto", "bitand", "bitor",
	"bool", "break", "case", "catch", "char", "char8_t", "char16_t", "char32_t",
	"class", "compl", "concept", "const", "consteval", "constexpr", "const_cast",
	"continue", "co_await", "co_return", "co_yield", "decltype", "default",
	"delete", "do", "double", "dynamic_cast", "else", "enum", "explicit",
	"export", "extern", "false", "float", "for", "friend", "goto", "if",
	"inline", "int", "long", "mutable", "namespace", "new", "noexcept", "not",
	"not_eq", "nullptr", "operator", "or", "or_eq", "private", "protected",
	"public", "register", "reinterpret_cast", "requires", "return", "short",
	"signed", "sizeof", "static", "static_assert", "static_cast", "struct",
	"switch", "template", "this", "thread_local", "throw", "true", "try",
	"typedef", "typeid", "typename", "union", "unsigned", "using", "virtual",
	"void", "volatile", "wchar_t", "while", "xor", "xor_eq", "main", "include",
}

// library holds standard-library identifiers that show up in teaching code.
var library = []string{
	"cout", "cin", "cerr", "clog", "endl", "std", "string", "vector", "list",
	"map", "set", "unordered_map", "unordered_set", "array", "tuple", "pair",
	"make_pair", "shared_ptr", "unique_ptr", "weak_ptr", "make_shared",
	"make_unique", "move", "forward", "initializer_list", "iostream", "fstream",
	"sstream", "algorithm", "functional", "iterator", "numeric", "memory",
	"stdexcept", "type_traits", "utility", "size", "length", "empty", "push_back",
	"pop_back", "push", "pop", "top", "front", "back", "begin", "end", "insert",
	"erase", "find", "clear", "getline", "printf", "scanf", "sort", "swap",
	"min", "max", "abs", "sqrt", "pow", "to_string", "stoi", "exception",
	"runtime_error", "ifstream", "ofstream", "stringstream", "setw",
	"setprecision", "fixed", "size_t", "queue", "stack", "deque",
}

// headers are the standard header names accepted between angle brackets.
var headers = []string{
	"iostream", "fstream", "sstream", "string", "vector", "list", "map", "set",
	"unordered_map", "unordered_set", "array", "tuple", "algorithm", "functional",
	"iterator", "numeric", "memory", "stdexcept", "type_traits", "utility",
	"cstdio", "cstdlib", "cstring", "cmath", "ctime", "cwchar", "bitset", "deque",
	"forward_list", "initializer_list", "limits", "locale", "queue", "stack",
	"valarray", "atomic", "condition_variable", "future", "mutex", "thread",
	"iomanip", "climits", "cctype", "cassert", "chrono", "random", "regex",
	"optional", "variant", "exception",
	"bits/stdc++.h", "stdio.h", "stdlib.h", "string.h", "math.h", "time.h",
	"ctype.h", "assert.h", "limits.h",
}

// curated maps frequent whole-word recognition errors to their correction.
// Single-glyph variants of lexicon words are generated on top of these.
var curated = map[string]string{
	"1nclude":  "include",
	"inc1ude":  "include",
	"incude":   "include",
	"ma1n":     "main",
	"c0ut":     "cout",
	"c1n":      "cin",
	"end1":     "endl",
	"str1ng":   "string",
	"vect0r":   "vector",
	"1nt":      "int",
	"f0r":      "for",
	"1f":       "if",
	"v0id":     "void",
	"retrn":    "return",
	"retun":    "return",
	"retum":    "return",
	"c1ass":    "class",
	"namespce": "namespace",
	"namspace": "namespace",
	"publ1c":   "public",
	"pr1vate":  "private",
	"d0uble":   "double",
	"d0ub1e":   "double",
	"doub1e":   "double",
	"bo0l":     "bool",
	"b00l":     "bool",
	"ch0r":     "char",
	"10stream": "iostream",
	"s1ze":     "size",
	"wh1le":    "while",
	"usng":     "using",
}

// glyphSwaps lists the letter to digit confusions used to generate variants
// of lexicon words.
var glyphSwaps = map[rune]rune{
	'i': '1',
	'l': '1',
	'o': '0',
	's': '5',
}
