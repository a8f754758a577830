package service

import (
	"regexp"
	"strings"
)

// knownApps maps a lowercase process or title fragment to a display name.
// Order matters: the first fragment contained in the input wins, so longer
// and more specific fragments come before generic ones.
var knownApps = []struct {
	fragment string
	name     string
}{
	// DCC / 3D & Texturing
	{"3dsmax", "Autodesk 3ds Max"},
	{"maya", "Autodesk Maya"},
	{"houdini", "SideFX Houdini"},
	{"blender", "Blender"},
	{"zbrush", "ZBrush"},
	{"mudbox", "Autodesk Mudbox"},
	{"marmoset", "Marmoset Toolbag"},
	{"rizomuv", "RizomUV"},
	{"xnormal", "xNormal"},
	{"adobe substance 3d painter", "Adobe Substance 3D Painter"},
	{"substance 3d painter", "Adobe Substance 3D Painter"},
	{"substance painter", "Adobe Substance 3D Painter"},
	{"adobe substance 3d designer", "Adobe Substance 3D Designer"},
	{"substance 3d designer", "Adobe Substance 3D Designer"},
	{"substance designer", "Adobe Substance 3D Designer"},
	{"adobe substance 3d sampler", "Adobe Substance 3D Sampler"},
	{"substance 3d sampler", "Adobe Substance 3D Sampler"},
	{"substance sampler", "Adobe Substance 3D Sampler"},
	{"adobe substance 3d modeler", "Adobe Substance 3D Modeler"},
	{"substance 3d modeler", "Adobe Substance 3D Modeler"},
	{"adobe substance 3d stager", "Adobe Substance 3D Stager"},
	{"substance 3d stager", "Adobe Substance 3D Stager"},
	{"quixel mixer", "Quixel Mixer"},
	{"quixel bridge", "Quixel Bridge"},
	{"quixel", "Quixel Bridge"},
	{"adobe bridge", "Adobe Bridge"},
	// Adobe Creative
	{"photoshop", "Adobe Photoshop"},
	{"illustrator", "Adobe Illustrator"},
	{"afterfx", "Adobe After Effects"},
	{"after effects", "Adobe After Effects"},
	{"premiere", "Adobe Premiere Pro"},
	{"media encoder", "Adobe Media Encoder"},
	{"audition", "Adobe Audition"},
	{"lightroom", "Adobe Lightroom Classic"},
	// Game Engines
	{"unity hub", "Unity Hub"},
	{"unityhub", "Unity Hub"},
	{"unity editor", "Unity Editor"},
	{"unity", "Unity Editor"},
	{"ue5editor", "Unreal Editor"},
	{"ue4editor", "Unreal Editor"},
	{"unrealeditor", "Unreal Editor"},
	{"unreal", "Unreal Editor"},
	{"epicgameslauncher", "Epic Games Launcher"},
	{"epic games launcher", "Epic Games Launcher"},
	{"godot", "Godot Engine"},
	{"gamemaker", "GameMaker"},
	{"cryengine", "CRYENGINE Sandbox"},
	{"construct3", "Construct 3"},
	{"construct 3", "Construct 3"},
	{"construct2", "Construct 2"},
	{"construct", "Construct"},
	// VR / Quest / Profilers
	{"meta quest developer hub", "Meta Quest Developer Hub"},
	{"oculus developer hub", "Meta Quest Developer Hub"},
	{"oculusdev", "Meta Quest Developer Hub"},
	{"oculusclient", "Meta Quest App"},
	{"oculus client", "Meta Quest App"},
	{"oculusdash", "Oculus Dash"},
	{"ovrserver", "Oculus VR Runtime"},
	{"oculusdebugtool", "Oculus Debug Tool"},
	{"oculus mirror", "Oculus Mirror"},
	{"oculusmirror", "Oculus Mirror"},
	{"sidequest", "SideQuest"},
	{"steamvr", "SteamVR"},
	{"adb", "Android Debug Bridge"},
	{"scrcpy", "scrcpy"},
	{"renderdoc", "RenderDoc"},
	{"nsight", "NVIDIA Nsight"},
	{"vtune", "Intel VTune Profiler"},
	// IDEs & Editors
	{"devenv", "Microsoft Visual Studio"},
	{"msbuild", "MSBuild"},
	{"rider64", "JetBrains Rider"},
	{"rider", "JetBrains Rider"},
	{"clion", "CLion"},
	{"pycharm", "PyCharm"},
	{"webstorm", "WebStorm"},
	{"idea64", "IntelliJ IDEA"},
	{"android studio", "Android Studio"},
	{"qtcreator", "Qt Creator"},
	{"sublime_text", "Sublime Text"},
	{"notepad++", "Notepad++"},
	{"notepad", "Notepad"},
	{"code", "Visual Studio Code"},
	// Version Control / Dev Tools
	{"p4v", "Perforce P4V"},
	{"p4merge", "P4Merge"},
	{"p4admin", "Perforce P4Admin"},
	{"helix", "Perforce Helix Core"},
	{"githubdesktop", "GitHub Desktop"},
	{"gitkraken", "GitKraken"},
	{"sourcetree", "Sourcetree"},
	{"tortoisegitproc", "TortoiseGit"},
	{"tortoisesvn", "TortoiseSVN"},
	{"plastic", "Plastic SCM"},
	{"cmder", "Cmder"},
	{"postman", "Postman"},
	{"insomnia", "Insomnia"},
	{"docker desktop", "Docker Desktop"},
	{"cmake-gui", "CMake (GUI)"},
	{"cmake", "CMake"},
	// Audio / Middleware
	{"fmod", "FMOD Studio"},
	{"wwise", "Wwise"},
	{"reaper", "REAPER"},
	{"ableton live", "Ableton Live"},
	{"audacity", "Audacity"},
	{"adobe audition", "Adobe Audition"},
	{"pro tools", "Pro Tools"},
	// Communication / PM
	{"slack", "Slack"},
	{"discord", "Discord"},
	{"teams", "Microsoft Teams"},
	{"zoom", "Zoom"},
	{"notion", "Notion"},
	{"trello", "Trello"},
	{"clickup", "ClickUp"},
	{"confluence", "Confluence"},
	{"jira", "Jira"},
	// Browsers
	{"chrome", "Google Chrome"},
	{"msedge", "Microsoft Edge"},
	{"edge", "Microsoft Edge"},
	{"firefox", "Mozilla Firefox"},
	{"opera", "Opera"},
	{"brave", "Brave"},
	{"vivaldi", "Vivaldi"},
	// Capture / Utilities
	{"obs64", "OBS Studio"},
	{"obs", "OBS Studio"},
	{"sharex", "ShareX"},
	{"greenshot", "Greenshot"},
	{"snagit", "Snagit"},
	{"7zfm", "7-Zip"},
	{"winrar", "WinRAR"},
	{"everything", "Everything"},
	{"bcompare", "Beyond Compare"},
	{"winmergeu", "WinMerge"},
	{"filezilla", "FileZilla"},
	{"teracopy", "TeraCopy"},
	{"nvcplui", "NVIDIA Control Panel"},
	{"nvidia broadcast", "NVIDIA Broadcast"},
	{"geforce experience", "NVIDIA GeForce Experience"},
	{"explorer", "File Explorer"},
	{"powershell", "Windows PowerShell"},
	{"cmd", "Command Prompt"},
	{"putty", "PuTTY"},
	{"inkscape", "Inkscape"},
	{"krita", "Krita"},
	{"gimp", "GIMP"},
	{"affinity photo", "Affinity Photo"},
	{"affinity designer", "Affinity Designer"},
}

// UnknownApp is reported when nothing identifies the application.
const UnknownApp = "Unknown"

var (
	executableSuffix = regexp.MustCompile(`(?i)\.(exe|app)$`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
	separatorRun     = regexp.MustCompile(`[_\-]+`)
	wordStart        = regexp.MustCompile(`\b\w`)
)

func init() {
	for i := range knownApps {
		knownApps[i].fragment = normalizeAppText(knownApps[i].fragment)
	}
}

// ClassifyApp returns a display name for a process. It is best-effort and
// only used for display grouping: process name first, then window title,
// then a prettified process name, then UnknownApp.
func ClassifyApp(processName, title string) string {
	if p := normalizeAppText(processName); p != "" {
		for _, app := range knownApps {
			if strings.Contains(p, app.fragment) {
				return app.name
			}
		}
	}

	if t := normalizeAppText(title); t != "" {
		for _, app := range knownApps {
			if strings.Contains(t, app.fragment) {
				return app.name
			}
		}
	}

	if pretty := prettifyProcessName(processName); pretty != "" {
		return pretty
	}
	return UnknownApp
}

func normalizeAppText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = executableSuffix.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// prettifyProcessName turns "my_tool-x64.exe" into "My Tool X64".
func prettifyProcessName(processName string) string {
	name := strings.TrimSpace(processName)
	name = executableSuffix.ReplaceAllString(name, "")
	name = separatorRun.ReplaceAllString(name, " ")
	name = strings.TrimSpace(whitespaceRun.ReplaceAllString(name, " "))
	return wordStart.ReplaceAllStringFunc(name, strings.ToUpper)
}
