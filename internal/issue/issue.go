// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	UnknownEngineId Id = iota + 1
	StrategyConflictId
	PackageInstallFailedId
	BrowserInstallFailedId
	PrivilegeDropFailedId
	LivenessUnreachableId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	unknownEngineIssue = &Issue{
		id: UnknownEngineId,
		mdMsg: `
# Unknown browser engine!

The requested browser engine is not supported.

## Supported engines:
- **chromium**
- **firefox**
- **webkit**

## Things you can try:
- Check for typos in the engine name
- List the policy that would be applied:
~~~
$ browserprov provision --dry-run
~~~`,
	}

	strategyConflictIssue = &Issue{
		id: StrategyConflictId,
		mdMsg: `
# Conflicting install strategy!

Exactly one install strategy must be active per image. Mixing bundled
binaries and OS-packaged browsers creates two conflicting sources of
truth for where the browser lives.

## Valid combinations:
- **bundled**: any of chromium, firefox, webkit under one install root
- **ospackage**: chromium only, paired with chromium-driver

## Things you can try:
- Pick one strategy in your config:
~~~cue
provision: {
  strategy: "bundled"
}
~~~
- For ospackage, restrict the engine set to chromium`,
	}

	packageInstallFailedIssue = &Issue{
		id: PackageInstallFailedId,
		mdMsg: `
# OS package installation failed!

Installing the shared-library dependency set did not complete. The image
must not be considered runnable; a deferred browser-launch failure is
strictly worse than this build-time failure.

## Common causes:
- Package index out of date (missing apt-get update)
- Package name not available on this distribution release
- No network access during the build

## Things you can try:
- Re-run with verbose output to see the package manager error:
~~~
$ browserprov --verbose provision
~~~
- Check the distribution release matches the resolved package names`,
	}

	browserInstallFailedIssue = &Issue{
		id: BrowserInstallFailedId,
		mdMsg: `
# Browser engine installation failed!

The vendor install tool could not place the requested engines under the
install root.

## Things you can try:
- Verify the install tool is on PATH inside the build environment
- Check the install root is writable:
~~~
$ ls -ld /usr/lib/browsers
~~~
- Install a single engine to narrow down the failure:
~~~
$ browserprov provision --engine chromium
~~~`,
	}

	privilegeDropFailedIssue = &Issue{
		id: PrivilegeDropFailedId,
		mdMsg: `
# Privilege drop failed!

The non-root runtime identity could not be created or cannot access a
required resource. This is surfaced immediately: a silent privilege
mismatch would otherwise show up later as an intermittent browser-launch
failure.

## Invariants checked:
- The runtime identity owns the application working directory
- Browser binaries remain root-owned but world read+execute
- No provisioning step runs privileged after the drop

## Things you can try:
- Run the verification step for details:
~~~
$ browserprov verify
~~~
- Check ownership of the install root and working directory`,
	}

	livenessUnreachableIssue = &Issue{
		id: LivenessUnreachableId,
		mdMsg: `
# Liveness endpoint unreachable!

The health monitor could not reach the application's liveness path.

## Common causes:
- The application has not finished starting (grace period too short)
- Wrong port: the bind port is configurable, check the port variable
- The application crashed after binding

## Things you can try:
- Probe once manually:
~~~
$ browserprov monitor --once
~~~
- Check the configured port and address:
~~~
$ browserprov env
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the browserprov configuration file.

## Configuration file locations:
- Linux: ~/.config/browserprov/config.cue
- macOS: ~/Library/Application Support/browserprov/config.cue
- Windows: %APPDATA%\browserprov\config.cue

## Things you can try:
- Create a default configuration:
~~~
$ browserprov config init
~~~
- Remove the config file to use defaults:
~~~
$ rm ~/.config/browserprov/config.cue
~~~

## Example configuration:
~~~cue
provision: {
  engines: ["chromium"]
  strategy: "bundled"
}

server: {
  bind_port: 8501
}
~~~`,
	}

	issues = map[Id]*Issue{
		unknownEngineIssue.Id():        unknownEngineIssue,
		strategyConflictIssue.Id():     strategyConflictIssue,
		packageInstallFailedIssue.Id(): packageInstallFailedIssue,
		browserInstallFailedIssue.Id(): browserInstallFailedIssue,
		privilegeDropFailedIssue.Id():  privilegeDropFailedIssue,
		livenessUnreachableIssue.Id():  livenessUnreachableIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
