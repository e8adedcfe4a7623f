package config

// DefaultTextExtensions is the built-in set of file extensions (including
// the leading dot) treated as text for chunking purposes, regardless of
// the ignore-file dialect in effect.
var DefaultTextExtensions = []string{
	".py", ".js", ".ts", ".jsx", ".tsx", ".mjs", ".cjs", ".java", ".go", ".rs",
	".cpp", ".c", ".cc", ".h", ".hpp", ".hxx", ".cs", ".rb", ".php", ".swift",
	".kt", ".kts", ".scala", ".clj", ".cljs",
	".lua", ".dart", ".m", ".mm", ".pl", ".pm", ".r", ".R", ".jl", ".ex", ".exs",
	".erl", ".hs", ".zig", ".v", ".nim", ".f90", ".f95", ".groovy", ".gradle",
	".sol", ".move",
	".md", ".mdx", ".txt", ".json", ".jsonc", ".json5", ".yaml", ".yml", ".toml",
	".xml", ".ini", ".conf", ".cfg", ".properties", ".editorconfig",
	".html", ".htm", ".css", ".scss", ".sass", ".less", ".styl", ".vue", ".svelte",
	".astro",
	".ejs", ".hbs", ".pug", ".jade", ".jinja", ".jinja2", ".erb", ".liquid",
	".twig", ".mustache", ".njk",
	".sql", ".sh", ".bash", ".zsh", ".fish", ".ps1", ".psm1", ".bat", ".cmd",
	".makefile", ".mk", ".cmake",
	".graphql", ".gql", ".proto", ".prisma", ".csv", ".tsv",
	".rst", ".adoc", ".tex", ".org",
	".dockerfile", ".containerfile",
	".vim", ".el", ".rkt",
}

// DefaultTextFilenames is the built-in set of extensionless filenames
// treated as text.
var DefaultTextFilenames = []string{
	"Makefile", "makefile", "GNUmakefile", "Dockerfile", "Containerfile",
	"Jenkinsfile", "Vagrantfile", "Procfile",
	".gitignore", ".gitattributes", ".gitmodules", ".dockerignore", ".npmignore",
	".eslintignore", ".prettierignore", ".stylelintignore", ".editorconfig",
	".browserslistrc", ".npmrc", ".yarnrc", ".nvmrc", ".node-version",
	".ruby-version", ".python-version", ".env.example", ".env.sample",
	".env.template",
	".eslintrc", ".prettierrc", ".stylelintrc", ".babelrc", ".postcssrc",
	".huskyrc", ".lintstagedrc", ".commitlintrc",
	"Gemfile", "Rakefile", "Brewfile", "Pipfile", "MANIFEST.in", "setup.py",
	"requirements.txt", "constraints.txt",
	"README", "CHANGELOG", "LICENSE", "LICENCE", "AUTHORS", "CONTRIBUTORS",
	"HISTORY", "TODO", "ROADMAP", "COPYING",
}

// DefaultExcludePatterns is the built-in glob exclude list, each pattern
// matched against a path's basename, its full relative path, and each of
// its path components, independent of whatever ignore-file
// dialect the project itself uses. StateDirName replaces the upstream
// tool's own reserved directory name in this list.
var DefaultExcludePatterns = []string{
	".venv", "venv", ".env", "env", "node_modules", "vendor", ".pnpm", ".yarn",
	"bower_components",
	".git", ".svn", ".hg", ".gitmodules",
	"__pycache__", ".pytest_cache", ".mypy_cache", ".tox", ".eggs", "*.egg-info",
	".ruff_cache",
	"dist", "build", "target", "out", "bin", "obj", ".next", ".nuxt", ".output",
	".vercel", ".netlify", ".turbo", ".parcel-cache", ".cache", ".temp", ".tmp",
	"coverage", ".nyc_output", "htmlcov",
	".idea", ".vscode", ".vs", "*.swp", "*.swo",
	".DS_Store", "Thumbs.db", "desktop.ini",
	"*.pyc", "*.pyo", "*.pyd", "*.so", "*.dll", "*.dylib", "*.exe", "*.o",
	"*.obj", "*.class", "*.jar", "*.war",
	"*.min.js", "*.min.css", "*.bundle.js", "*.chunk.js", "*.map", "*.gz",
	"*.zip", "*.tar", "*.rar",
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "Gemfile.lock",
	"poetry.lock", "Cargo.lock", "composer.lock",
	"*.log", "logs", "tmp", "temp",
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.ico", "*.svg", "*.mp3", "*.mp4",
	"*.wav", "*.avi", "*.mov", "*.pdf", "*.doc", "*.docx", "*.xls", "*.xlsx",
	"*.woff", "*.woff2", "*.ttf", "*.eot", "*.otf",
	"*.db", "*.sqlite", "*.sqlite3",
	StateDirName,
}

// StateDirName is this tool's own local state directory, always excluded
// from indexing.
const StateDirName = ".ctxmcp"

// DefaultMaxLinesPerChunk is the default line-count cap per chunk (§4.3).
const DefaultMaxLinesPerChunk = 800
