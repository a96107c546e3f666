package composer

// Prompts are Japanese on purpose, the accounts this feeds are run
// against the Japanese timeline.

const analysisPrompt = `なぜこの投稿がバズっているのかを分析する専門家として振る舞ってください。

【目的】
- 以下の「バズった投稿」を分析し、バズった要因・理由を可能な限り具体的に列挙する。

【制約条件・出力要求】
以下のフォーマットに従って分析してください。

1. 概要・要約
    - 投稿内容の簡単なストーリーや要旨をまとめてください。
2. バズ要素の詳細分析
    - 冒頭1行目のインパクト（感情表現や有名ワード、年代、衝撃的フレーズなど）
    - 文章展開のパターン（常識の否定→ギャップ、疑問→経験ベースの持論、会話形式など）
    - 視覚的要素（改行、句読点、カタカナ・英語・数字の使い方、箇条書きなど）
    - 心理学的要素や共感性（「嘘か本当かわからないリアリティ」「読者にとって身近な体験」など）
    - 語彙・文体・口調（口語的・タメ口・ネットスラング、毒っ気とユーモア、オチの意外性など）
    - オチの作り方（意外性・ギャップ・ツッコミどころ）
    - ディテール・具体性（どの程度詳細に描写しているか）
    - その他の注目要素（煽り、常識の否定、権威付け、数字やデータの有無など）

省略や「...」などは使用せず、すべての分析項目を網羅してください。

【バズった投稿】
%s
`

const templatePrompt = `分析結果をもとに「文章作成時にすぐ使えるテンプレート」を作る専門家として振る舞ってください。

【目的】
- 以下の投稿と分析結果から、バズ要素を応用できる文章作成テンプレートを作成する。
- テンプレートは、投稿者が内容を入れ替えるだけでバズりやすい文章を生成できるように、汎用性を意識する。
- テンプレート作成時は文字量も詳細に書いてください。

【制約条件・出力要求】
1. バズ要素を活かした文章作成テンプレート
    - 冒頭部分に入れるべきフレーズやテクニック
    - 本文（中盤）の展開例と見せ方
    - オチの入れ方・締め方
    - 投稿者が具体的なキーワードを置き換えれば使える汎用テンプレートを提示
2. 活用時の注意点・アドバイス
    - 攻撃的な表現を避けるコツ
    - 不快感を与えないための言い回しの工夫
    - 著作権や引用元に関する注意

【元の投稿】
%s

【投稿分析】
%s
`

const finalPostPrompt = `あなたはSNSのThreadsプロのコンテンツライターです。

#【今回のタスクの目的】
・分析結果とテンプレートを元に、特定のターゲット向けのThreads投稿を作成する

#【制約条件】
・最下部に【投稿テンプレート】があります。実際にバズった投稿を分析したものです。
・【ターゲット】に合わせて、【投稿テンプレート】に忠実に従って投稿作成してください
・出力結果は投稿本文のみで、コピペしてスレッズに投稿できるようにしてください

# 【出力フォーマット】
※投稿本文のみ生成する

# 【ターゲット】
%s

# 【投稿テンプレート】
%s
`

const probePrompt = `Threadsに投稿するための短い文章を日本語で1つ書いてください。`
