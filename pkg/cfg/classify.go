package cfg

import "strings"

// CallPurity is the classifier's verdict on a callee: known to be free
// of side effects, known to have side effects, or not in any table.
type CallPurity uint8

const (
	// PurityUnknown means the callee matched no table. Downstream
	// analyses resolve it through an UnknownCallBehavior policy.
	PurityUnknown CallPurity = iota
	// PurityPure means the callee has no side effects.
	PurityPure
	// PurityImpure means the callee has side effects.
	PurityImpure
)

func (p CallPurity) String() string {
	switch p {
	case PurityPure:
		return "pure"
	case PurityImpure:
		return "impure"
	}
	return "unknown"
}

// UnknownCallBehavior decides how an unknown callee is treated once the
// classifier has given up.
type UnknownCallBehavior uint8

const (
	// AssumeImpure treats unknown callees as having side effects.
	// This is the conservative default: it over-reports impurity but
	// never hides it.
	AssumeImpure UnknownCallBehavior = iota
	// AssumePure treats unknown callees as side-effect free.
	AssumePure
)

// ParseUnknownCallBehavior maps a config string to a policy value.
func ParseUnknownCallBehavior(s string) (UnknownCallBehavior, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "assume-impure", "impure":
		return AssumeImpure, true
	case "assume-pure", "pure":
		return AssumePure, true
	}
	return AssumeImpure, false
}

// Resolve collapses an Unknown verdict according to the policy. Pure
// and Impure verdicts pass through unchanged.
func (b UnknownCallBehavior) Resolve(p CallPurity) CallPurity {
	if p != PurityUnknown {
		return p
	}
	if b == AssumePure {
		return PurityPure
	}
	return PurityImpure
}

// Classify looks up a callee name, possibly qualified ("Vec::len",
// "std::fs::read"), in the purity tables. Exact qualified names are
// checked first, then the trailing method name against the pattern
// tables, with pure patterns taking precedence over impure ones. Names
// matching neither table come back Unknown.
//
// The function is a pure lookup: the same name always yields the same
// verdict.
func Classify(callee string) CallPurity {
	if isKnownPure(callee) {
		return PurityPure
	}
	if isKnownImpure(callee) {
		return PurityImpure
	}
	return PurityUnknown
}

func isKnownPure(callee string) bool {
	if _, ok := knownPureFunctions[callee]; ok {
		return true
	}
	_, ok := pureMethodPatterns[methodName(callee)]
	return ok
}

func isKnownImpure(callee string) bool {
	if _, ok := knownImpureFunctions[callee]; ok {
		return true
	}
	_, ok := impureMethodPatterns[methodName(callee)]
	return ok
}

// methodName strips any path qualification, returning the final
// :: segment.
func methodName(callee string) string {
	if i := strings.LastIndex(callee, "::"); i >= 0 {
		return callee[i+2:]
	}
	return callee
}

func makeSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// knownPureFunctions lists std callees with no side effects, by
// qualified name.
var knownPureFunctions = makeSet(
	// numeric
	"std::cmp::min", "std::cmp::max",
	"std::cmp::Ord::cmp", "std::cmp::PartialOrd::partial_cmp",
	"i32::abs", "i64::abs", "f32::abs", "f64::abs",
	"f32::sqrt", "f64::sqrt",
	"f32::sin", "f64::sin", "f32::cos", "f64::cos",
	"f32::floor", "f64::floor", "f32::ceil", "f64::ceil",
	"f32::round", "f64::round",
	"i32::saturating_add", "i32::saturating_sub",
	"i64::saturating_add", "i64::saturating_sub",
	"i32::wrapping_add", "i32::wrapping_sub",
	"usize::saturating_add", "usize::saturating_sub",

	// Option
	"Option::is_some", "Option::is_none",
	"Option::as_ref", "Option::as_mut",
	"Option::unwrap_or", "Option::unwrap_or_else", "Option::unwrap_or_default",
	"Option::map", "Option::and_then",
	"Option::or", "Option::or_else",
	"Option::filter", "Option::flatten",
	"Option::copied", "Option::cloned", "Option::zip",
	"Option::ok_or", "Option::ok_or_else",

	// Result
	"Result::is_ok", "Result::is_err", "Result::as_ref",
	"Result::map", "Result::map_err", "Result::and_then",
	"Result::unwrap_or", "Result::unwrap_or_else", "Result::unwrap_or_default",
	"Result::ok", "Result::err",
	"Result::copied", "Result::cloned",

	// strings
	"str::len", "str::is_empty",
	"str::trim", "str::trim_start", "str::trim_end",
	"str::to_lowercase", "str::to_uppercase",
	"str::contains", "str::starts_with", "str::ends_with",
	"str::split", "str::chars", "str::bytes", "str::lines",
	"str::split_whitespace", "str::replace", "str::parse",
	"String::len", "String::is_empty",
	"String::as_str", "String::as_bytes", "String::capacity",
	"String::chars", "String::bytes",

	// Vec / slices, accessors only
	"Vec::len", "Vec::is_empty", "Vec::capacity",
	"Vec::first", "Vec::last", "Vec::get", "Vec::contains",
	"Vec::iter", "Vec::as_slice", "Vec::binary_search",
	"Vec::starts_with", "Vec::ends_with",
	"[T]::len", "[T]::is_empty", "[T]::first", "[T]::last",
	"[T]::get", "[T]::contains", "[T]::iter",
	"[T]::split", "[T]::chunks", "[T]::windows", "[T]::binary_search",

	// maps and sets, accessors only
	"HashMap::len", "HashMap::is_empty", "HashMap::contains_key",
	"HashMap::get", "HashMap::keys", "HashMap::values",
	"HashMap::iter", "HashMap::capacity",
	"HashSet::len", "HashSet::is_empty", "HashSet::contains",
	"HashSet::get", "HashSet::iter", "HashSet::capacity",
	"HashSet::is_subset", "HashSet::is_superset", "HashSet::is_disjoint",
	"BTreeMap::len", "BTreeMap::is_empty", "BTreeMap::contains_key",
	"BTreeMap::get", "BTreeMap::keys", "BTreeMap::values",
	"BTreeMap::iter", "BTreeMap::range",
	"BTreeMap::first_key_value", "BTreeMap::last_key_value",

	// iterator adapters and folds
	"Iterator::count", "Iterator::map", "Iterator::filter",
	"Iterator::filter_map", "Iterator::flat_map", "Iterator::flatten",
	"Iterator::take", "Iterator::skip", "Iterator::zip",
	"Iterator::enumerate", "Iterator::peekable", "Iterator::chain",
	"Iterator::fold", "Iterator::reduce",
	"Iterator::all", "Iterator::any", "Iterator::find", "Iterator::position",
	"Iterator::sum", "Iterator::product", "Iterator::collect",
	"Iterator::nth", "Iterator::last",
	"Iterator::min", "Iterator::max",
	"Iterator::min_by", "Iterator::max_by",
	"Iterator::min_by_key", "Iterator::max_by_key",
	"Iterator::rev", "Iterator::cloned", "Iterator::copied",
	"Iterator::by_ref", "Iterator::step_by",
	"Iterator::take_while", "Iterator::skip_while",
	"Iterator::partition", "Iterator::unzip",
	"Iterator::inspect", "Iterator::fuse", "Iterator::cycle",

	// clone and formatting
	"Clone::clone", "ToOwned::to_owned",
	"Display::fmt", "Debug::fmt", "ToString::to_string",

	// conversions
	"From::from", "Into::into",
	"TryFrom::try_from", "TryInto::try_into",
	"AsRef::as_ref", "AsMut::as_mut",
	"Deref::deref", "DerefMut::deref_mut",
	"Borrow::borrow", "BorrowMut::borrow_mut",
	"Default::default",

	// comparisons and hashing
	"PartialEq::eq", "PartialEq::ne", "Eq::eq",
	"PartialOrd::partial_cmp",
	"PartialOrd::lt", "PartialOrd::le", "PartialOrd::gt", "PartialOrd::ge",
	"Ord::cmp", "Ord::max", "Ord::min", "Ord::clamp",
	"Hash::hash",
	"Index::index", "IndexMut::index_mut",

	// Path
	"Path::exists", "Path::is_file", "Path::is_dir",
	"Path::extension", "Path::file_name", "Path::file_stem",
	"Path::parent", "Path::join", "Path::with_extension",
	"Path::to_str", "Path::to_string_lossy", "Path::display",
	"Path::canonicalize", "Path::components",
	"PathBuf::as_path", "PathBuf::push", "PathBuf::set_extension",
)

// knownImpureFunctions lists std callees with side effects, by
// qualified name.
var knownImpureFunctions = makeSet(
	// I/O
	"std::io::Read::read", "std::io::Read::read_to_string",
	"std::io::Read::read_to_end",
	"std::io::Write::write", "std::io::Write::write_all",
	"std::io::Write::flush",
	"std::fs::read", "std::fs::read_to_string", "std::fs::write",
	"std::fs::File::open", "std::fs::File::create",
	"std::fs::remove_file", "std::fs::remove_dir", "std::fs::remove_dir_all",
	"std::fs::create_dir", "std::fs::create_dir_all",
	"std::fs::rename", "std::fs::copy",
	"std::fs::metadata", "std::fs::read_dir",
	"println", "print", "eprintln", "eprint", "dbg",

	// network
	"std::net::TcpStream::connect", "std::net::TcpListener::bind",
	"std::net::UdpSocket::bind", "std::net::UdpSocket::send",
	"std::net::UdpSocket::recv",

	// randomness and clocks
	"rand::random", "rand::thread_rng", "rand::Rng::gen",
	"std::time::Instant::now", "std::time::SystemTime::now",

	// container mutation
	"Vec::push", "Vec::pop", "Vec::insert", "Vec::remove",
	"Vec::clear", "Vec::truncate", "Vec::extend", "Vec::append",
	"Vec::drain", "Vec::retain", "Vec::resize", "Vec::swap_remove",
	"Vec::dedup", "Vec::sort", "Vec::sort_by", "Vec::sort_by_key",
	"Vec::reverse",
	"HashMap::insert", "HashMap::remove", "HashMap::clear",
	"HashMap::drain", "HashMap::retain", "HashMap::entry",
	"HashSet::insert", "HashSet::remove", "HashSet::clear",
	"HashSet::drain", "HashSet::retain",
	"BTreeMap::insert", "BTreeMap::remove", "BTreeMap::clear",
	"BTreeMap::pop_first", "BTreeMap::pop_last",

	// string mutation
	"String::push", "String::push_str", "String::pop",
	"String::insert", "String::insert_str", "String::remove",
	"String::clear", "String::truncate", "String::retain", "String::drain",

	// interior mutability
	"RefCell::borrow_mut", "RefCell::replace", "RefCell::swap",
	"Cell::set", "Cell::replace", "Cell::swap",
	"Mutex::lock", "RwLock::write", "RwLock::read",

	// threads and channels
	"std::thread::spawn", "std::thread::sleep", "JoinHandle::join",
	"Sender::send", "Receiver::recv", "Receiver::try_recv",

	// environment and process
	"std::env::var", "std::env::set_var", "std::env::remove_var",
	"std::env::args", "std::env::current_dir", "std::env::set_current_dir",
	"std::process::Command::new", "std::process::Command::spawn",
	"std::process::Command::output",
	"std::process::exit", "std::process::abort",
)

// pureMethodPatterns matches bare method names when the receiver type
// is unknown. Checked after the exact tables.
var pureMethodPatterns = makeSet(
	"len", "is_empty", "is_some", "is_none", "is_ok", "is_err",
	"as_ref", "as_mut", "as_str", "as_slice", "as_bytes", "as_path",
	"get", "first", "last", "contains", "contains_key",
	"clone", "to_owned", "to_string", "to_lowercase", "to_uppercase",
	"map", "filter", "and_then", "or_else",
	"unwrap_or", "unwrap_or_default", "unwrap_or_else",
	"iter", "into_iter", "chars", "bytes", "lines",
	"trim", "trim_start", "trim_end",
	"abs", "sqrt", "sin", "cos", "floor", "ceil", "round",
	"min", "max", "clamp", "cmp", "partial_cmp",
	"eq", "ne", "lt", "le", "gt", "ge",
	"copied", "cloned", "flatten", "zip", "enumerate", "rev",
	"take", "skip", "fold", "reduce", "all", "any",
	"find", "position", "sum", "product", "collect", "count", "nth",
	"split", "chunks", "windows", "starts_with", "ends_with",
	"binary_search", "is_subset", "is_superset", "is_disjoint",
	"capacity", "keys", "values",
	"from", "into", "default", "hash", "index", "deref", "borrow",
	"display", "fmt", "parse",
)

// impureMethodPatterns matches bare method names that mutate or perform
// I/O regardless of receiver.
var impureMethodPatterns = makeSet(
	"push", "pop", "insert", "remove", "clear", "truncate",
	"extend", "append", "drain", "retain", "resize", "swap_remove",
	"dedup", "sort", "sort_by", "sort_by_key", "reverse",
	"read", "read_to_string", "read_to_end",
	"write", "write_all", "flush",
	"connect", "bind", "listen", "accept", "send", "recv",
	"spawn", "join", "sleep", "lock", "unlock",
	"now", "elapsed", "random", "gen", "shuffle",
	"set", "replace", "swap", "borrow_mut", "entry",
	"pop_first", "pop_last",
)
