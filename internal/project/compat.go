package project

import "slices"

// frameworkTable lists the frameworks that can be combined with each
// language and project type. A missing entry means the combination only
// accepts an empty framework.
var frameworkTable = map[Language]map[Type][]string{
	LanguageTypeScript: {
		TypeWeb:          {"react", "nextjs", "vue", "angular"},
		TypeAPI:          {"express", "fastify", "nestjs"},
		TypeCLI:          {"commander", "oclif"},
		TypeMicroservice: {"express", "fastify", "nestjs"},
		TypeMobile:       {"react-native", "ionic"},
	},
	LanguageJavaScript: {
		TypeWeb:          {"react", "vue", "svelte"},
		TypeAPI:          {"express", "fastify", "koa"},
		TypeCLI:          {"commander", "yargs"},
		TypeMicroservice: {"express", "fastify"},
		TypeMobile:       {"react-native"},
	},
	LanguagePython: {
		TypeWeb:          {"django", "flask"},
		TypeAPI:          {"fastapi", "flask", "django"},
		TypeCLI:          {"click", "typer"},
		TypeMicroservice: {"fastapi", "flask"},
	},
	LanguageGo: {
		TypeWeb:          {"gin", "echo"},
		TypeAPI:          {"gin", "echo", "chi"},
		TypeCLI:          {"cobra", "urfave-cli"},
		TypeMicroservice: {"gin", "grpc", "chi"},
	},
	LanguageJava: {
		TypeWeb:          {"spring-boot"},
		TypeAPI:          {"spring-boot", "quarkus", "micronaut"},
		TypeCLI:          {"picocli"},
		TypeMicroservice: {"spring-boot", "quarkus", "micronaut"},
		TypeMobile:       {"android"},
	},
	LanguageRust: {
		TypeWeb:          {"axum", "actix-web"},
		TypeAPI:          {"axum", "actix-web", "rocket"},
		TypeCLI:          {"clap"},
		TypeMicroservice: {"axum", "tonic"},
	},
}

// Frameworks returns the frameworks compatible with lang and typ.
func Frameworks(lang Language, typ Type) []string {
	return slices.Clone(frameworkTable[lang][typ])
}

// FrameworkCompatible reports whether framework may be used with lang and
// typ. The empty framework is always compatible.
func FrameworkCompatible(lang Language, typ Type, framework string) bool {
	if framework == "" {
		return true
	}
	return slices.Contains(frameworkTable[lang][typ], framework)
}

// DependencyManifests returns the dependency manifest file names accepted
// for lang, preferred first.
func DependencyManifests(lang Language) []string {
	switch lang {
	case LanguageTypeScript, LanguageJavaScript:
		return []string{"package.json"}
	case LanguagePython:
		return []string{"pyproject.toml", "requirements.txt"}
	case LanguageGo:
		return []string{"go.mod"}
	case LanguageJava:
		return []string{"pom.xml", "build.gradle", "build.gradle.kts"}
	case LanguageRust:
		return []string{"Cargo.toml"}
	default:
		return nil
	}
}

// SourceExtensions returns the file extensions treated as source code for lang.
func SourceExtensions(lang Language) []string {
	switch lang {
	case LanguageTypeScript:
		return []string{".ts", ".tsx"}
	case LanguageJavaScript:
		return []string{".js", ".jsx", ".mjs"}
	case LanguagePython:
		return []string{".py"}
	case LanguageGo:
		return []string{".go"}
	case LanguageJava:
		return []string{".java"}
	case LanguageRust:
		return []string{".rs"}
	default:
		return nil
	}
}
