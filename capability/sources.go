package capability

import (
	"database/sql"
	"runtime/debug"
)

// SQLDriverPrefix prefixes database/sql driver names to form module identities.
const SQLDriverPrefix = "database/sql:"

// SQLDriverID returns the identity of a registered database/sql driver.
func SQLDriverID(driver string) ID {
	return ID(SQLDriverPrefix + driver)
}

// BuildInfoSource reports the Go modules linked into the binary.
// Replaced modules report the replacement's version.
func BuildInfoSource() Source {
	return SourceFunc(func() []Module {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return nil
		}
		modules := make([]Module, 0, len(info.Deps)+1)
		if info.Main.Path != "" {
			modules = append(modules, Module{ID: ID(info.Main.Path), Version: info.Main.Version, Origin: OriginBuildInfo})
		}
		for _, dep := range info.Deps {
			version := dep.Version
			if dep.Replace != nil && dep.Replace.Version != "" {
				version = dep.Replace.Version
			}
			modules = append(modules, Module{ID: ID(dep.Path), Version: version, Origin: OriginBuildInfo})
		}
		return modules
	})
}

// SQLDriverSource reports drivers registered with database/sql.
func SQLDriverSource() Source {
	return SourceFunc(func() []Module {
		drivers := sql.Drivers()
		modules := make([]Module, 0, len(drivers))
		for _, driver := range drivers {
			modules = append(modules, Module{ID: SQLDriverID(driver), Origin: OriginSQLDriver})
		}
		return modules
	})
}

// StaticSource reports a fixed set of modules. Useful for manifests and tests.
func StaticSource(ids ...ID) Source {
	modules := make([]Module, 0, len(ids))
	for _, id := range ids {
		modules = append(modules, Module{ID: id, Origin: OriginRegistered})
	}
	return SourceFunc(func() []Module {
		out := make([]Module, len(modules))
		copy(out, modules)
		return out
	})
}
