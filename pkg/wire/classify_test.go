package wire

import "testing"

func TestClassifyUntaggedResult(t *testing.T) {
	msgType, content := Classify("ok")
	if msgType != MsgTypeResponse || content != "ok" {
		t.Fatalf("Classify = (%q, %q), want (response, ok)", msgType, content)
	}
}

func TestClassifyTaggedPrefixes(t *testing.T) {
	cases := []struct {
		result   string
		wantType string
		wantBody string
	}{
		{`GUI_PLOT:{"a":1}`, MsgTypeGUIPlot, `{"a":1}`},
		{`GUI_CHESS:{"board":[]}`, MsgTypeGUIChess, `{"board":[]}`},
		{`GUI_ML_DASHBOARD:{"summary":"x"}`, MsgTypeGUIMLDashboard, `{"summary":"x"}`},
		{`GUI_PIPELINE_DIAGRAM:{"nodes":[]}`, MsgTypeGUIPipelineDiag, `{"nodes":[]}`},
	}

	for _, tc := range cases {
		msgType, content := Classify(tc.result)
		if msgType != tc.wantType || content != tc.wantBody {
			t.Errorf("Classify(%q) = (%q, %q), want (%q, %q)", tc.result, msgType, content, tc.wantType, tc.wantBody)
		}
	}
}

func TestClassifyFindsTagMidText(t *testing.T) {
	result := `Here is your chart. GUI_PLOT:{"title":"y = sin(x)","x_values":[0]} Enjoy!`

	msgType, content := Classify(result)
	if msgType != MsgTypeGUIPlot {
		t.Fatalf("msg_type = %q, want gui_plot", msgType)
	}
	if content != `{"title":"y = sin(x)","x_values":[0]}` {
		t.Fatalf("content = %q, want the extracted payload object", content)
	}
}

func TestClassifyPrefersMoreSpecificTag(t *testing.T) {
	// A dashboard summary may mention plots; the dashboard tag must win.
	result := `GUI_ML_DASHBOARD:{"note":"see GUI_PLOT output"}`

	msgType, _ := Classify(result)
	if msgType != MsgTypeGUIMLDashboard {
		t.Fatalf("msg_type = %q, want gui_ml_dashboard", msgType)
	}
}

func TestClassifyTaggedWithoutJSONStripsPrefix(t *testing.T) {
	msgType, content := Classify("GUI_PLOT:unparseable")
	if msgType != MsgTypeGUIPlot || content != "unparseable" {
		t.Fatalf("Classify = (%q, %q), want prefix stripped raw remainder", msgType, content)
	}
}
