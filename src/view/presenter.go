package view

import (
	"caption-assist/src/caption"
	"caption-assist/src/eventloop"
	"caption-assist/src/speech"
)

const (
	labelGenerate   = "Generate Caption"
	labelGenerating = "Generating..."
	labelSpeak      = "Speak"
	labelStop       = "Stop"
	labelNoImage    = "No image selected"
)

// Model is what the window shows for one ViewState.
type Model struct {
	ImageLabel  string
	PreviewPath string

	GenerateLabel   string
	GenerateEnabled bool
	Loading         bool

	ErrorText string

	ShowResult   bool
	Caption      string
	Alternatives []string
	SpeakLabel   string
	SpeakEnabled bool
	CopyEnabled  bool

	Detailed  bool
	AutoSpeak bool
}

// Present maps state onto widgets without touching any of them.
func Present(st eventloop.ViewState, clipboardOK bool) Model {
	m := Model{
		ImageLabel:      labelNoImage,
		GenerateLabel:   labelGenerate,
		GenerateEnabled: st.CanGenerate,
		SpeakLabel:      labelSpeak,
		Detailed:        st.Options.Detailed,
		AutoSpeak:       st.Options.AutoSpeak,
	}
	if st.HasImage {
		m.ImageLabel = st.ImageName
		m.PreviewPath = st.PreviewPath
	}

	switch st.Caption.State {
	case caption.InFlight:
		m.GenerateLabel = labelGenerating
		m.Loading = true
	case caption.Failed:
		m.ErrorText = st.Caption.Error
	case caption.Succeeded:
		if r := st.Caption.Result; r != nil {
			m.ShowResult = true
			m.Caption = r.Primary
			m.Alternatives = r.Alternatives
			m.SpeakEnabled = true
			m.CopyEnabled = clipboardOK
		}
	}

	if st.Speech == speech.Speaking {
		m.SpeakLabel = labelStop
		m.SpeakEnabled = true
	}
	return m
}
